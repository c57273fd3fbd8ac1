package entities

// PDScenario is a preset part detection scenario offered to new users.
type PDScenario struct {
	ID            uint   `gorm:"primaryKey"`
	Name          string `gorm:"size:200;not null"`
	InferenceMode string `gorm:"size:100"`
	ProjectID     *uint  `gorm:"index"`

	Project *Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:SET NULL"`
}

// TableName returns the table name for GORM.
func (PDScenario) TableName() string {
	return "pd_scenarios"
}

// All returns every entity for schema migration, parents first.
func All() []any {
	return []any{
		&Project{},
		&Part{},
		&Camera{},
		&InferenceModule{},
		&PartDetection{},
		&Image{},
		&TrainingStatus{},
		&DeployStatus{},
		&PDScenario{},
	}
}
