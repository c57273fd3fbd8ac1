package entities

import "time"

// Image is a labeled image submitted by an inference module. Relabel images
// are ordered by (Timestamp, ID) for eviction.
type Image struct {
	ID         uint      `gorm:"primaryKey"`
	ProjectID  uint      `gorm:"not null;index:idx_images_relabel,priority:1"`
	PartID     uint      `gorm:"not null;index:idx_images_relabel,priority:2"`
	IsRelabel  bool      `gorm:"not null;index:idx_images_relabel,priority:3"`
	Timestamp  time.Time `gorm:"not null;index:idx_images_relabel,priority:4"`
	CameraID   *uint     `gorm:"index"`
	Confidence float64   `gorm:"not null"`
	Labels     string    `gorm:"type:text"` // JSON bounding boxes as sent by the edge
	FilePath   string    `gorm:"size:1024"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`

	// Relationships
	Part *Part `gorm:"foreignKey:PartID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM.
func (Image) TableName() string {
	return "images"
}
