package pipeline

import "fmt"

// Stage identifies a step of the podcast pipeline. Stage names double as the
// state names of the run state machine and as metric attribute values.
type Stage string

const (
	StageExtracting   Stage = "extracting"
	StageGenerating   Stage = "script_generating"
	StageParsing      Stage = "parsing"
	StageSynthesizing Stage = "synthesizing"
	StageAssembling   Stage = "assembling"
	StagePublishing   Stage = "publishing"
)

// StageError tags a pipeline failure with the stage it occurred in. Callers
// always receive a stage-tagged failure, never a bare cause.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
