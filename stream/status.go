package stream

// Status is the lifecycle state of a Controller.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusStreaming  Status = "streaming"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
	StatusStopped    Status = "stopped"
)

// IsTerminal reports whether s ends a run. A controller in a terminal
// status can be started again.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusStopped:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }
