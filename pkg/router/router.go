// Package router implements a single mobile node: its position and
// mobility model, its heterogeneous radio interfaces, the routing
// information it has learned from neighbors (RIB), and the two forwarding
// tables derived from that information (FIB). A Router never reaches
// across process boundaries or holds a pointer to another Router; all
// cross-router interaction — delivering an advertisement, forwarding a
// data packet, reading a peer's position — goes through the PeerResolver
// the owning simulator supplies on every call. This keeps the object graph
// acyclic and the whole tick loop a single synchronous call stack.
package router

import (
	"github.com/hgn/mdvrd/pkg/interfaceprofile"
	"github.com/hgn/mdvrd/pkg/mobility"
	"github.com/hgn/mdvrd/pkg/simlog"
	"github.com/hgn/mdvrd/pkg/simrand"
)

// PeerResolver is the simulator-owned indirection a Router uses to reach
// the rest of the network without holding a direct reference to another
// Router.
type PeerResolver interface {
	// Position returns a peer's current coordinates.
	Position(peer ID) (x, y float64, ok bool)
	// Deliver hands a routing advertisement to the named peer's
	// ReceiveRoutePacket, as if it arrived over iface.
	Deliver(peer ID, iface PathType, pkt RoutingPacket, rxTime int)
	// ForwardData hands a data packet to the named peer's Forward method.
	ForwardData(peer ID, pkt DataPacket)
}

// FIBComputer recomputes a Router's forwarding tables from its current
// RIB. It is implemented outside this package (by pkg/routing) and
// injected, rather than imported directly, so pkg/router and pkg/routing
// never import one another.
type FIBComputer interface {
	Compute(r *Router) FIB
}

// Params bundles a new Router's fixed configuration.
type Params struct {
	ID       ID
	PrefixV4 string
	X, Y     float64

	Profiles []interfaceprofile.Profile

	AreaX, AreaY float64

	TxInterval   int
	TxJitterMax  int
	DeadInterval int
	DefaultTTL   int

	MinVelocity, MaxVelocity float64
}

// Router is one mobile node in the simulation.
type Router struct {
	id       ID
	prefixV4 string
	x, y     float64
	areaX    float64
	areaY    float64
	mobility mobility.Model

	profiles  []interfaceprofile.Profile
	neighbors map[PathType]*neighborSet
	nextTx    map[PathType]int
	txSeq     map[PathType]uint32

	txInterval   int
	txJitterMax  int
	deadInterval int
	defaultTTL   int

	rib RIB
	fib FIB

	dirty          bool
	transmittedNow bool
	time           int

	rng      *simrand.Source
	logger   *simlog.Logger
	computer FIBComputer
}

// NewRouter constructs a Router with an empty RIB/FIB and a freshly seeded
// mobility model. computer is consulted whenever the RIB changes and a FIB
// recompute is due.
func NewRouter(p Params, rng *simrand.Source, logger *simlog.Logger, computer FIBComputer) *Router {
	r := &Router{
		id:           p.ID,
		prefixV4:     p.PrefixV4,
		x:            p.X,
		y:            p.Y,
		areaX:        p.AreaX,
		areaY:        p.AreaY,
		mobility:     mobility.New(rng, p.MinVelocity, p.MaxVelocity),
		profiles:     p.Profiles,
		neighbors:    make(map[PathType]*neighborSet, len(p.Profiles)),
		nextTx:       make(map[PathType]int, len(p.Profiles)),
		txSeq:        make(map[PathType]uint32, len(p.Profiles)),
		txInterval:   p.TxInterval,
		txJitterMax:  p.TxJitterMax,
		deadInterval: p.DeadInterval,
		defaultTTL:   p.DefaultTTL,
		rib:          RIB{},
		fib:          NewFIB(),
		rng:          rng,
		logger:       logger,
		computer:     computer,
	}
	for _, prof := range p.Profiles {
		pt := PathType(prof.PathType)
		r.neighbors[pt] = newNeighborSet()
		r.rib[pt] = make(map[ID]RIBEntry)
		r.nextTx[pt] = rng.IntnRange(0, p.TxInterval)
	}
	return r
}

// ID returns the router's stable identifier.
func (r *Router) ID() ID { return r.id }

// PrefixV4 returns the router's originated network.
func (r *Router) PrefixV4() string { return r.prefixV4 }

// Position returns the router's current coordinates.
func (r *Router) Position() (float64, float64) { return r.x, r.y }

// TransmittedNow reports whether the router sent an advertisement on the
// tick most recently processed by Step.
func (r *Router) TransmittedNow() bool { return r.transmittedNow }

// Profiles returns the router's interface profiles in their configured
// order.
func (r *Router) Profiles() []interfaceprofile.Profile { return r.profiles }

// NeighborsOn returns the peers currently reachable over iface, in the
// order they were discovered.
func (r *Router) NeighborsOn(iface PathType) []ID {
	ns, ok := r.neighbors[iface]
	if !ok {
		return nil
	}
	return ns.Ordered()
}

// NeighborContains reports whether peer is currently reachable over iface.
func (r *Router) NeighborContains(iface PathType, peer ID) bool {
	ns, ok := r.neighbors[iface]
	if !ok {
		return false
	}
	return ns.Contains(peer)
}

// RIB exposes the raw advertisement store for FIBComputer implementations.
func (r *Router) RIB() RIB { return r.rib }

// FIB returns the router's current forwarding tables.
func (r *Router) FIB() FIB { return r.fib }

// SetFIB installs a freshly computed pair of forwarding tables.
func (r *Router) SetFIB(f FIB) { r.fib = f }

// Dirty reports whether the RIB changed since the last FIB recompute.
func (r *Router) Dirty() bool { return r.dirty }

// SetNeighborPresence records that peer is (or is no longer) reachable over
// iface, as decided by the simulator's range sweep. It reports whether
// this changed the set. Losing reachability does not by itself discard any
// RIB entry already learned from peer on iface — that remains governed
// purely by the dead interval, matching the liveness model's single source
// of truth.
func (r *Router) SetNeighborPresence(iface PathType, peer ID, present bool) bool {
	ns, ok := r.neighbors[iface]
	if !ok {
		return false
	}
	if present {
		return ns.Insert(peer)
	}
	return ns.Remove(peer)
}

// Step advances the router by one tick: it moves, transmits on any
// interface whose jittered interval has elapsed, expires stale RIB
// entries, and recomputes its FIB if anything changed.
func (r *Router) Step(resolver PeerResolver) {
	r.time++
	r.transmittedNow = false

	r.x, r.y = r.mobility.Move(r.x, r.y, r.areaX, r.areaY)

	for _, prof := range r.profiles {
		pt := PathType(prof.PathType)
		if r.time < r.nextTx[pt] {
			continue
		}
		r.transmit(pt, resolver)
		jitter := 0
		if r.txJitterMax > 0 {
			jitter = r.rng.IntnRange(0, r.txJitterMax)
		}
		r.nextTx[pt] = r.time + r.txInterval + jitter
	}

	if r.expireStaleEntries() {
		r.dirty = true
	}

	if r.dirty && r.computer != nil {
		r.fib = r.computer.Compute(r)
		r.dirty = false
		if r.logger != nil {
			r.logger.Logf(r.time, "fib recomputed: %d low_loss routes, %d high_bandwidth routes",
				len(r.fib.LowLoss), len(r.fib.HighBandwidth))
		}
	}
}

// transmit builds this router's current advertisement for iface and
// delivers it to every neighbor currently reachable over that interface.
func (r *Router) transmit(pt PathType, resolver PeerResolver) {
	r.txSeq[pt]++
	pkt := RoutingPacket{
		RouterID:     r.id,
		SequenceNo:   r.txSeq[pt],
		Networks:     []string{r.prefixV4},
		RoutingPaths: r.fib,
	}
	peers := r.neighbors[pt].Ordered()
	for _, peer := range peers {
		resolver.Deliver(peer, pt, pkt, r.time)
	}
	if len(peers) > 0 {
		r.transmittedNow = true
		if r.logger != nil {
			r.logger.Logf(r.time, "transmitted on %s to %d neighbor(s), seq=%d", pt, len(peers), r.txSeq[pt])
		}
	}
}

// ReceiveRoutePacket processes an advertisement arriving on iface from a
// neighbor. A packet whose content (ignoring sequence number) is unchanged
// from the stored entry only refreshes that entry's liveness clock; any
// other packet replaces the entry and marks the RIB dirty so the next Step
// recomputes the FIB.
func (r *Router) ReceiveRoutePacket(iface PathType, pkt RoutingPacket, rxTime int) {
	table, ok := r.rib[iface]
	if !ok {
		return
	}
	existing, had := table[pkt.RouterID]
	if had && existing.Packet.equalIgnoringSequence(pkt) {
		existing.RxTime = rxTime
		table[pkt.RouterID] = existing
		return
	}
	table[pkt.RouterID] = RIBEntry{RxTime: rxTime, Packet: pkt}
	r.dirty = true
	if r.logger != nil {
		r.logger.Logf(r.time, "rib updated from %s on %s, seq=%d", pkt.RouterID, iface, pkt.SequenceNo)
	}
}

// expireStaleEntries drops any RIB entry not refreshed within the dead
// interval. Deterministic iteration order is unnecessary here since the
// result is a set of deletions, not an ordered computation, but the
// interface/neighbor key traversal itself is still driven by the RIB's own
// map — callers that need determinism (route computation) sort separately.
func (r *Router) expireStaleEntries() bool {
	changed := false
	for iface, table := range r.rib {
		for neighbor, entry := range table {
			if r.time-entry.RxTime > r.deadInterval {
				delete(table, neighbor)
				changed = true
				if r.logger != nil {
					r.logger.Logf(r.time, "rib entry from %s on %s expired", neighbor, iface)
				}
			}
		}
	}
	return changed
}

// Forward advances a data packet one hop. Its TTL is decremented first and
// the packet dropped if that reaches zero; only then is the destination
// checked, so a packet delivered on its very last hop is dropped rather
// than delivered. A packet not yet at its destination is dropped if this
// router has no route for it, or if its FIB's next hop is no longer a
// current neighbor on the chosen interface — a FIB/neighbor-set
// inconsistency that must never be forwarded into.
func (r *Router) Forward(pkt DataPacket, resolver PeerResolver) {
	pkt.TTL--
	if pkt.TTL <= 0 {
		if r.logger != nil {
			r.logger.Logf(r.time, "ttl expired for %s", pkt)
		}
		return
	}
	if pkt.DstID == r.id {
		if r.logger != nil {
			r.logger.Logf(r.time, "delivered %s", pkt)
		}
		return
	}
	entry, ok := r.fib.Lookup(pkt.DstID, pkt.TOS)
	if !ok {
		if r.logger != nil {
			r.logger.Logf(r.time, "no route for %s", pkt)
		}
		return
	}
	if !r.NeighborContains(entry.Interface, entry.NextHop) {
		if r.logger != nil {
			r.logger.Logf(r.time, "next-hop %s unreachable for %s", entry.NextHop, pkt)
		}
		return
	}
	resolver.ForwardData(entry.NextHop, pkt)
}
