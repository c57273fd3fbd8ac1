package partdetection

import "fmt"

// Stage is a named step of the training and deployment pipeline. Stages are
// ordered; FAILED sits outside the order and is terminal.
type Stage int

const (
	StageNotStarted Stage = iota
	StageFindingProject
	StageUploadingImages
	StageTraining
	StageExporting
	StageTrained
	StageDeploying
	StageDeployed
	StageFailed
)

type stageInfo struct {
	name string
	log  string
}

var stages = [...]stageInfo{
	StageNotStarted:      {"NOT_STARTED", "Not started"},
	StageFindingProject:  {"FINDING_PROJECT", "Finding project"},
	StageUploadingImages: {"UPLOADING_IMAGES", "Uploading images"},
	StageTraining:        {"TRAINING", "Training in progress"},
	StageExporting:       {"EXPORTING", "Exporting model"},
	StageTrained:         {"TRAINED", "Training completed"},
	StageDeploying:       {"DEPLOYING", "Deploying model to inference module"},
	StageDeployed:        {"DEPLOYED", "Model deployed"},
	StageFailed:          {"FAILED", "Failed"},
}

// ParseStage returns the stage with the given name.
func ParseStage(name string) (Stage, error) {
	for i, info := range stages {
		if info.name == name {
			return Stage(i), nil
		}
	}
	return StageNotStarted, fmt.Errorf("unknown stage %q", name)
}

func (s Stage) valid() bool {
	return s >= StageNotStarted && s <= StageFailed
}

// String returns the stage name, e.g. "FINDING_PROJECT".
func (s Stage) String() string {
	if !s.valid() {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stages[s].name
}

// Log returns the human readable progress line shown to pollers.
func (s Stage) Log() string {
	if !s.valid() {
		return ""
	}
	return stages[s].log
}

// Ordinal is the position in the pipeline, or -1 for FAILED.
func (s Stage) Ordinal() int {
	if s == StageFailed {
		return -1
	}
	return int(s)
}

// IsTerminal reports whether no further transition is expected.
func (s Stage) IsTerminal() bool {
	return s == StageDeployed || s == StageFailed
}

// Reached reports whether s is at or past target in the pipeline.
func (s Stage) Reached(target Stage) bool {
	return s != StageFailed && target != StageFailed && s >= target
}

// Next returns the following pipeline stage. Terminal stages have none.
func (s Stage) Next() (Stage, bool) {
	if s.IsTerminal() || !s.valid() {
		return s, false
	}
	return s + 1, true
}

// CanTransition reports whether a status may move from one stage to another.
// Forward moves are allowed, FAILED is reachable from any non-terminal stage
// and any stage may restart at FINDING_PROJECT.
func CanTransition(from, to Stage) bool {
	if !from.valid() || !to.valid() {
		return false
	}
	switch {
	case to == StageFindingProject:
		return true
	case to == StageFailed:
		return !from.IsTerminal()
	case from == StageFailed:
		return false
	default:
		return to > from
	}
}
