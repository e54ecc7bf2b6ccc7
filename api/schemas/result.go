package schemas

import "time"

// -- Run Result Schemas --

// Capture is one named, ordered list of texts extracted by a captureList operation.
type Capture struct {
	Name   string   `json:"name" yaml:"name"`
	Values []string `json:"values" yaml:"values"`
}

// Snapshot is a full-page capture appended by the snapshot operation.
type Snapshot struct {
	// Sequence is the zero-based position in the snapshot log.
	Sequence  int       `json:"sequence" yaml:"sequence"`
	Path      string    `json:"path" yaml:"path"`
	LoopValue string    `json:"loop_value,omitempty" yaml:"loop_value,omitempty"`
	TakenAt   time.Time `json:"taken_at" yaml:"taken_at"`
	Source    string    `json:"-" yaml:"-"`
}

// RunResult is everything a script run produced. Captures are listed in the
// order their variables were first written.
type RunResult struct {
	Captures  []Capture  `json:"captures" yaml:"captures"`
	Snapshots []Snapshot `json:"snapshots" yaml:"snapshots"`
}

// Capture returns the values stored under name.
func (r *RunResult) Capture(name string) ([]string, bool) {
	if r == nil {
		return nil, false
	}
	for _, c := range r.Captures {
		if c.Name == name {
			return c.Values, true
		}
	}
	return nil, false
}

// RunRecord is a finished run as handed to reporters and persistent stores.
type RunRecord struct {
	ID         string     `json:"id" yaml:"id"`
	URL        string     `json:"url" yaml:"url"`
	ScriptPath string     `json:"script" yaml:"script"`
	StartedAt  time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time  `json:"finished_at" yaml:"finished_at"`
	Error      string     `json:"error,omitempty" yaml:"error,omitempty"`
	Result     *RunResult `json:"result" yaml:"result"`
}
