package router

import "fmt"

// ID stably identifies a router for the lifetime of a simulation.
type ID string

func (id ID) String() string { return string(id) }

// PathType stably identifies a radio interface class, e.g. "wifi00".
type PathType string

// Metric selects between the two independently-computed FIBs.
type Metric string

const (
	// LowLoss selects the shortest-path-by-loss forwarding table.
	LowLoss Metric = "low_loss"
	// HighBandwidth selects the widest-path-by-bandwidth forwarding table.
	HighBandwidth Metric = "high_bandwidth"
)

// RoutingPacket is the in-process value a router advertises on one
// interface: its own id, a per-interface strictly-monotonic sequence
// number, the networks it originates, and (once it has one) a snapshot of
// its own FIB so peers can extend their view of the network beyond direct
// neighbors.
type RoutingPacket struct {
	RouterID     ID
	SequenceNo   uint32
	Networks     []string
	RoutingPaths FIB
}

// equalIgnoringSequence reports whether two packets carry the same content,
// treating the sequence number as not part of that content. This backs the
// receive-side dedupe: a neighbor re-announcing identical information (only
// the sequence number bumped) must not mark the RIB dirty. The FIB snapshot
// participates in this comparison — a conservative choice favoring
// freshness over fewer recomputations; see DESIGN.md.
func (p RoutingPacket) equalIgnoringSequence(o RoutingPacket) bool {
	if p.RouterID != o.RouterID {
		return false
	}
	if !stringSliceEqual(p.Networks, o.Networks) {
		return false
	}
	return p.RoutingPaths.equal(o.RoutingPaths)
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// FIBEntry is one destination's entry in a forwarding table.
type FIBEntry struct {
	NextHop ID
	// Interface is the local interface used to reach NextHop.
	Interface PathType
	// FullPath lists the routers from destination to self, inclusive:
	// FullPath[0] is the destination, FullPath[len-1] is self.
	FullPath []ID
	Networks []string
	// HopWeights[i] is the metric-specific weight of the edge between
	// FullPath[i] and FullPath[i+1], preserved so a receiving peer can
	// re-assemble an exact weighted graph from an advertised path instead
	// of re-deriving per-hop weights it has no other way to observe.
	HopWeights []float64
}

func (e FIBEntry) equal(o FIBEntry) bool {
	if e.NextHop != o.NextHop || e.Interface != o.Interface {
		return false
	}
	if !stringSliceEqual(e.Networks, o.Networks) {
		return false
	}
	if len(e.FullPath) != len(o.FullPath) {
		return false
	}
	for i := range e.FullPath {
		if e.FullPath[i] != o.FullPath[i] {
			return false
		}
	}
	if len(e.HopWeights) != len(o.HopWeights) {
		return false
	}
	for i := range e.HopWeights {
		if e.HopWeights[i] != o.HopWeights[i] {
			return false
		}
	}
	return true
}

// FIBTable maps a destination router to its forwarding entry for one
// metric.
type FIBTable map[ID]FIBEntry

func (t FIBTable) equal(o FIBTable) bool {
	if len(t) != len(o) {
		return false
	}
	for dst, e := range t {
		oe, ok := o[dst]
		if !ok || !e.equal(oe) {
			return false
		}
	}
	return true
}

// FIB is the pair of independently-computed forwarding tables.
type FIB struct {
	LowLoss       FIBTable
	HighBandwidth FIBTable
}

// NewFIB returns an empty, non-nil FIB, so that an "empty" FIB is never
// ambiguous with a "not yet computed" zero value for equality purposes.
func NewFIB() FIB {
	return FIB{LowLoss: FIBTable{}, HighBandwidth: FIBTable{}}
}

func (f FIB) equal(o FIB) bool {
	return f.LowLoss.equal(o.LowLoss) && f.HighBandwidth.equal(o.HighBandwidth)
}

// Lookup resolves a destination under the given metric's table.
func (f FIB) Lookup(dst ID, m Metric) (FIBEntry, bool) {
	switch m {
	case LowLoss:
		e, ok := f.LowLoss[dst]
		return e, ok
	case HighBandwidth:
		e, ok := f.HighBandwidth[dst]
		return e, ok
	default:
		return FIBEntry{}, false
	}
}

// RIBEntry is one neighbor's most-recently-accepted advertisement on one
// interface.
type RIBEntry struct {
	RxTime int
	Packet RoutingPacket
}

// RIB is the raw inbound advertisement store, keyed by interface then by
// the advertising neighbor.
type RIB map[PathType]map[ID]RIBEntry

// DataPacket is a test/data packet forwarded hop-by-hop through the
// network along a FIB path.
type DataPacket struct {
	SrcID ID
	DstID ID
	TTL   int
	TOS   Metric
}

func (p DataPacket) String() string {
	return fmt.Sprintf("%s->%s ttl=%d tos=%s", p.SrcID, p.DstID, p.TTL, p.TOS)
}
