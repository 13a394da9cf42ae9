// Package api holds the wire-level types shared between the core simulator
// and its external observers (the gNMI telemetry server, and — out of this
// module's scope — the image/video rendering pipeline). Nothing in the
// core routing engine depends on a consumer of these types; they flow in a
// single direction, simulator to observer.
package api

// ActionType distinguishes a link or route coming up from one going down,
// the same two-state vocabulary the daemon's RIB/FIB update cascade used.
type ActionType string

const (
	// Add indicates a link or route came up.
	Add ActionType = "ADD"
	// Delete indicates a link or route went down.
	Delete ActionType = "DELETE"
)

// LinkEvent reports a single neighbor appearing or disappearing on one
// router's interface, as decided by the neighbor-discovery sweep.
type LinkEvent struct {
	Action    ActionType
	RouterID  string
	Peer      string
	Interface string
}

// RouterSnapshot is one router's externally-visible per-tick state.
type RouterSnapshot struct {
	ID             string
	X, Y           float64
	PrefixV4       string
	TransmittedNow bool
}

// InterfaceSnapshot is one router interface's externally-visible per-tick
// state: its static range and the peers currently reachable over it.
type InterfaceSnapshot struct {
	PathType string
	Range    float64
	Peers    []string
}

// Snapshot is the full per-tick observer view of the simulation: enough for
// the range/transmission image renderers (external collaborators, out of
// this module's scope) or the gNMI telemetry server to render a frame.
type Snapshot struct {
	Tick       int
	Routers    []RouterSnapshot
	Interfaces map[string][]InterfaceSnapshot
}
