// Package entities defines the GORM models backing the part detection service.
package entities

import "time"

// PartDetection is a part detection configuration. Project, InferenceModule and
// Camera are nullable until the user assigns them.
type PartDetection struct {
	ID                uint   `gorm:"primaryKey"`
	Name              string `gorm:"size:200;not null"`
	HasConfigured     bool   `gorm:"not null"`
	ProbThreshold     int    `gorm:"not null;default:10"`
	AccuracyRangeMin  int    `gorm:"not null;default:60"`
	AccuracyRangeMax  int    `gorm:"not null;default:80"`
	ProjectID         *uint  `gorm:"index"`
	InferenceModuleID *uint  `gorm:"index"`
	CameraID          *uint  `gorm:"index"` // camera recorded on uploaded relabel images

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	// Relationships
	Project         *Project         `gorm:"foreignKey:ProjectID;constraint:OnDelete:SET NULL"`
	InferenceModule *InferenceModule `gorm:"foreignKey:InferenceModuleID;constraint:OnDelete:SET NULL"`
	Camera          *Camera          `gorm:"foreignKey:CameraID;constraint:OnDelete:SET NULL"`
	Cameras         []Camera         `gorm:"many2many:part_detection_cameras"`
	Parts           []Part           `gorm:"many2many:part_detection_parts"`
}

// TableName returns the table name for GORM.
func (PartDetection) TableName() string {
	return "part_detections"
}

// PartByName returns the configured part with the given name, or nil.
func (pd *PartDetection) PartByName(name string) *Part {
	for i := range pd.Parts {
		if pd.Parts[i].Name == name {
			return &pd.Parts[i]
		}
	}
	return nil
}

// Project is a vision project trained in the remote training subsystem.
type Project struct {
	ID                 uint      `gorm:"primaryKey"`
	Name               string    `gorm:"size:200;not null"`
	MaxImages          int       `gorm:"not null;default:20"`
	RelabelExpiredTime time.Time // relabel store turns FIFO once this passes
	DownloadURI        string    `gorm:"size:2048"`
	IsDemo             bool      `gorm:"not null"`
	IsTrained          bool      `gorm:"not null"` // set once a training run has completed
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (Project) TableName() string {
	return "projects"
}

// Part is an object class detected within a project.
type Part struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:200;not null;index"`
	ProjectID uint   `gorm:"not null;index"`

	Project *Project `gorm:"foreignKey:ProjectID"`
}

// TableName returns the table name for GORM.
func (Part) TableName() string {
	return "parts"
}

// Camera is a video source attached to a configuration.
type Camera struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:200;not null"`
	RTSP string `gorm:"size:2048"`
}

// TableName returns the table name for GORM.
func (Camera) TableName() string {
	return "cameras"
}

// InferenceModule is an edge inference endpoint. URL is host:port and may
// omit the scheme.
type InferenceModule struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:200;not null"`
	URL  string `gorm:"size:512;not null"`
}

// TableName returns the table name for GORM.
func (InferenceModule) TableName() string {
	return "inference_modules"
}
