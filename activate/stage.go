package activate

// Stage is a step of the activation pipeline.
type Stage string

const (
	StageIdle             Stage = "idle"
	StagePointerSwitching Stage = "pointer-switching"
	StageEmitting         Stage = "emitting"
	StageRecompiling      Stage = "recompiling"
)

func (s Stage) String() string { return string(s) }

// ProgressFunc receives stage transitions with a short human readable
// message.
type ProgressFunc func(stage Stage, message string)
