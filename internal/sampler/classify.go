package sampler

import "github.com/Dicklesworthstone/snapmon/internal/model"

// DiskKind is the storage medium behind a volume.
type DiskKind int

const (
	DiskKindUnknown DiskKind = iota
	DiskKindRotational
	DiskKindSolidState
)

// Label maps the kind onto HDD, SSD or Unknown.
func (k DiskKind) Label() string {
	switch k {
	case DiskKindRotational:
		return "HDD"
	case DiskKindSolidState:
		return "SSD"
	default:
		return model.Unknown
	}
}

// ProcessState is the scheduler state of a process.
type ProcessState int

const (
	StateUnknown ProcessState = iota
	StateRunning
	StateSleeping
	StateStopped
	StateIdle
	StateZombie
)

// Label maps the state onto its display text.
func (s ProcessState) Label() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateSleeping:
		return "Sleeping"
	case StateStopped:
		return "Stopped"
	case StateIdle:
		return "Idle"
	case StateZombie:
		return "Zombie"
	default:
		return model.Unknown
	}
}
