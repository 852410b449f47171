package pipeline

import "fmt"

// Mode selects the execution strategy for a run.
type Mode int

const (
	// ModeSequential runs handlers strictly in priority order.
	ModeSequential Mode = iota

	// ModeParallel starts all eligible handlers together and settles when
	// every handler settles.
	ModeParallel

	// ModeRace starts all eligible handlers together and settles with the
	// first handler to finish.
	ModeRace
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeSequential:
		return "sequential"
	case ModeParallel:
		return "parallel"
	case ModeRace:
		return "race"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "sequential", "":
		return ModeSequential, nil
	case "parallel":
		return ModeParallel, nil
	case "race":
		return ModeRace, nil
	default:
		return ModeSequential, fmt.Errorf("pipeline: unknown mode %q", s)
	}
}
