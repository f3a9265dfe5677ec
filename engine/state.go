package engine

// State is the lifecycle state of an Engine.
type State int

const (
	// Uninitialized is the state before Initialize and after Cleanup.
	Uninitialized State = iota
	// Ready means the device runs the effect graph.
	Ready
	// Capturing is Ready with a recording in progress.
	Capturing
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Capturing:
		return "capturing"
	default:
		return "unknown"
	}
}

// Running reports whether the engine holds a device and a graph.
func (s State) Running() bool {
	return s == Ready || s == Capturing
}
