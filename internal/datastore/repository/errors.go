// Package repository provides repository interfaces and GORM implementations
// for the part detection schema.
package repository

import "github.com/tphakala/partdetect/internal/errors"

// Sentinel errors for repository operations.
var (
	// ErrPartDetectionNotFound indicates the requested part detection does not exist.
	ErrPartDetectionNotFound = errors.NewStd("part detection not found")

	// ErrProjectNotFound indicates the requested project does not exist.
	ErrProjectNotFound = errors.NewStd("project not found")

	// ErrTrainingStatusNotFound indicates no training status exists for the project.
	ErrTrainingStatusNotFound = errors.NewStd("training status not found")

	// ErrDeployStatusNotFound indicates no deploy status exists for the part detection.
	ErrDeployStatusNotFound = errors.NewStd("deploy status not found")

	// ErrInvalidInput indicates invalid input parameters.
	ErrInvalidInput = errors.NewStd("invalid input")
)
