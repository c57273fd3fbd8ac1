package entities

import "time"

// TrainingStatus records the progress stage of a project's remote training.
// There is at most one row per project.
type TrainingStatus struct {
	ID          uint      `gorm:"primaryKey"`
	ProjectID   uint      `gorm:"uniqueIndex;not null"`
	Status      string    `gorm:"size:32;not null"`
	Log         string    `gorm:"type:text"`
	Performance string    `gorm:"type:text"` // JSON blob reported by the trainer
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (TrainingStatus) TableName() string {
	return "training_statuses"
}

// DeployStatus records the deployment state of a part detection configuration.
type DeployStatus struct {
	ID              uint      `gorm:"primaryKey"`
	PartDetectionID uint      `gorm:"uniqueIndex;not null"`
	Status          string    `gorm:"size:32;not null"`
	Log             string    `gorm:"type:text"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (DeployStatus) TableName() string {
	return "deploy_statuses"
}
