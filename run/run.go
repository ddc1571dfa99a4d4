package run

import (
	"time"
)

type ModelKind string

const (
	KindLinear ModelKind = "linear"
	KindKernel ModelKind = "kernel"
)

const (
	DefGroupColumns  = 1
	DefKernelC       = 1.0
	DefKernelEpsilon = 0.1
)

type Stage uint8

const (
	Initial Stage = iota
	DataReady
	Validated
	Trained
	Published
	Failed
)

func (s Stage) String() string {
	switch s {
	case Initial:
		return "Initial"
	case DataReady:
		return "DataReady"
	case Validated:
		return "Validated"
	case Trained:
		return "Trained"
	case Published:
		return "Published"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

type KernelParams struct {
	C       float64 `json:"c" toml:"c"`
	Epsilon float64 `json:"epsilon" toml:"epsilon"`
	// Gamma <= 0 selects the scale heuristic 1/(d * var(X)).
	Gamma float64 `json:"gamma" toml:"gamma"`
}

type TaskSpec struct {
	Name          string       `json:"name" toml:"name"`
	Kind          ModelKind    `json:"kind" toml:"kind"`
	NGroupColumns int          `json:"n_group_columns" toml:"n_group_columns"`
	Kernel        KernelParams `json:"kernel,omitempty" toml:"kernel"`
	TotalRound    int          `json:"total_round" toml:"total_round"`
}

// Normalize fills zero-valued task options with their defaults.
func (t *TaskSpec) Normalize() {
	if t.Kind == "" {
		t.Kind = KindLinear
	}
	if t.NGroupColumns == 0 {
		t.NGroupColumns = DefGroupColumns
	}
	if t.TotalRound == 0 {
		t.TotalRound = 1
	}
	if t.Kind == KindKernel {
		if t.Kernel.C == 0 {
			t.Kernel.C = DefKernelC
		}
		if t.Kernel.Epsilon == 0 {
			t.Kernel.Epsilon = DefKernelEpsilon
		}
	}
}

type Run struct {
	ID           string     `json:"id"           toml:"id"`
	Name         string     `json:"name"         toml:"name"`
	ProjectID    string     `json:"project_id"   toml:"project_id"`
	BatchID      string     `json:"batch_id"     toml:"batch_id"`
	Participants []string   `json:"participants" toml:"participants"`
	Tasks        []TaskSpec `json:"tasks"        toml:"tasks"`
	TotalRound   int        `json:"total_round"  toml:"total_round"`
	CreatedAt    time.Time  `json:"created_at"   toml:"created_at"`
}

// Task returns the task specification for a 1-based sequence number.
func (r Run) Task(sequence int) (TaskSpec, bool) {
	if sequence < 1 || sequence > len(r.Tasks) {
		return TaskSpec{}, false
	}

	return r.Tasks[sequence-1], true
}

type Page struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
	Total  uint64 `json:"total"`
	Runs   []Run  `json:"runs"`
}

// RoundRef addresses one step within a run's task sequence. Both components
// are 1-based and monotonically increasing.
type RoundRef struct {
	Sequence int `json:"sequence"`
	Round    int `json:"round"`
}

func (r RoundRef) First() bool {
	return r.Round <= 1
}

// Prev returns the reference of the preceding round within the same task.
func (r RoundRef) Prev() RoundRef {
	return RoundRef{Sequence: r.Sequence, Round: r.Round - 1}
}

func (r RoundRef) Next() RoundRef {
	return RoundRef{Sequence: r.Sequence, Round: r.Round + 1}
}

func (r RoundRef) Valid() bool {
	return r.Sequence >= 1 && r.Round >= 1
}
