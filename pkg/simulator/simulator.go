// Package simulator owns every Router in a run and drives them forward
// one synchronous tick at a time: position updates, advertisement
// transmission and reception, neighbor discovery, and FIB recomputation
// all happen inside a single call stack per tick, with no goroutines; the
// only channel use is a non-blocking send of each tick's snapshot and link
// events to optional observers. The only concurrency in the whole daemon
// lives above this package, in cmd/mdvrd, where the tick loop runs
// alongside an independent telemetry server.
package simulator

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/hgn/mdvrd/pkg/api"
	"github.com/hgn/mdvrd/pkg/config"
	"github.com/hgn/mdvrd/pkg/interfaceprofile"
	"github.com/hgn/mdvrd/pkg/router"
	"github.com/hgn/mdvrd/pkg/routing"
	"github.com/hgn/mdvrd/pkg/simlog"
	"github.com/hgn/mdvrd/pkg/simrand"
)

// Simulator owns the whole population of routers for one run.
type Simulator struct {
	cfg     *config.Config
	rng     *simrand.Source
	routers map[router.ID]*router.Router
	order   []router.ID
	loggers []*simlog.Logger

	profiles []interfaceprofile.Profile

	// standingPackets are re-injected at their source router every tick,
	// the way the original simulator continuously exercised the forwarding
	// plane between a fixed pair of endpoints instead of only ever
	// computing routes nothing uses them to carry traffic over.
	standingPackets []router.DataPacket

	tick int

	snapshots  chan<- api.Snapshot
	linkEvents chan<- api.LinkEvent
}

// Options controls what a Simulator reports to external observers. Either
// channel may be nil; a nil channel is simply never sent to.
type Options struct {
	Snapshots  chan<- api.Snapshot
	LinkEvents chan<- api.LinkEvent
}

// New builds RouterCount routers at random positions within the
// configured area, each carrying the configured interface profiles, all
// driven by a single seeded random source so the whole run is reproducible
// from cfg.Seed.
func New(cfg *config.Config, opts Options) (*Simulator, error) {
	if cfg.RouterCount <= 0 {
		return nil, fmt.Errorf("simulator: router_count must be positive, got %d", cfg.RouterCount)
	}

	rng := simrand.New(cfg.Seed)
	profiles := make([]interfaceprofile.Profile, 0, len(cfg.Interfaces))
	for _, ic := range cfg.Interfaces {
		profiles = append(profiles, interfaceprofile.Profile{
			PathType:             ic.PathType,
			RangeMeters:          ic.RangeMeters,
			BandwidthUnitsPerSec: ic.BandwidthUnitsPerSec,
			LossPercent:          ic.LossPercent,
		})
	}

	s := &Simulator{
		cfg:        cfg,
		rng:        rng,
		routers:    make(map[router.ID]*router.Router, cfg.RouterCount),
		profiles:   profiles,
		snapshots:  opts.Snapshots,
		linkEvents: opts.LinkEvents,
	}

	engine := routing.Engine{}
	for i := 0; i < cfg.RouterCount; i++ {
		id := router.ID(fmt.Sprintf("r%03d", i))
		logger, err := simlog.Open(cfg.LogDir, fmt.Sprintf("%05d", i))
		if err != nil {
			return nil, err
		}
		params := router.Params{
			ID:           id,
			PrefixV4:     randIPPrefix(rng),
			X:            rng.Float64Range(0, cfg.AreaX),
			Y:            rng.Float64Range(0, cfg.AreaY),
			Profiles:     profiles,
			AreaX:        cfg.AreaX,
			AreaY:        cfg.AreaY,
			TxInterval:   cfg.TxInterval,
			TxJitterMax:  cfg.TxJitterMax,
			DeadInterval: cfg.DeadInterval,
			DefaultTTL:   cfg.DefaultTTL,
			MinVelocity:  cfg.MobilityMinVelocity,
			MaxVelocity:  cfg.MobilityMaxVelocity,
		}
		s.routers[id] = router.NewRouter(params, rng, logger, engine)
		s.order = append(s.order, id)
		s.loggers = append(s.loggers, logger)
	}
	sort.Slice(s.order, func(i, j int) bool { return s.order[i] < s.order[j] })

	if len(s.order) >= 2 {
		src, dst := s.order[0], s.order[len(s.order)-1]
		s.standingPackets = []router.DataPacket{
			{SrcID: src, DstID: dst, TTL: cfg.DefaultTTL, TOS: router.LowLoss},
			{SrcID: src, DstID: dst, TTL: cfg.DefaultTTL, TOS: router.HighBandwidth},
		}
	}
	return s, nil
}

// randIPPrefix mirrors the original simulator's randomly assigned /24
// per-router network, drawn from the private 10.0.0.0/8 block: a single
// random 32-bit draw supplies both the second and third octets, the same way the original
// derived its prefix from one random address rather than two independent
// byte draws.
func randIPPrefix(rng *simrand.Source) string {
	v := rng.Uint32()
	return fmt.Sprintf("10.%d.%d.0/24", byte(v>>16), byte(v>>8))
}

// Position implements router.PeerResolver.
func (s *Simulator) Position(id router.ID) (float64, float64, bool) {
	r, ok := s.routers[id]
	if !ok {
		return 0, 0, false
	}
	x, y := r.Position()
	return x, y, true
}

// Deliver implements router.PeerResolver.
func (s *Simulator) Deliver(peer router.ID, iface router.PathType, pkt router.RoutingPacket, rxTime int) {
	r, ok := s.routers[peer]
	if !ok {
		return
	}
	r.ReceiveRoutePacket(iface, pkt, rxTime)
}

// ForwardData implements router.PeerResolver.
func (s *Simulator) ForwardData(peer router.ID, pkt router.DataPacket) {
	r, ok := s.routers[peer]
	if !ok {
		return
	}
	r.Forward(pkt, s)
}

// InjectDataPacket starts a data packet at src's forwarding engine, as if
// an application on src had just originated it.
func (s *Simulator) InjectDataPacket(src router.ID, pkt router.DataPacket) {
	r, ok := s.routers[src]
	if !ok {
		return
	}
	r.Forward(pkt, s)
}

// Tick advances every router by one step, then re-derives neighbor
// reachability from the routers' new positions, publishes a snapshot of
// the resulting state to any configured observer, and finally re-injects
// the standing test packets so the forwarding plane is continuously
// exercised. Step order within a tick is fixed and load-bearing: changing
// it changes observable results.
func (s *Simulator) Tick() {
	s.tick++
	log.Printf("simulation time: %d/%d", s.tick, s.cfg.SimulationSeconds)

	for _, id := range s.order {
		s.routers[id].Step(s)
	}
	s.discoverNeighbors()
	s.publishSnapshot()
	for _, pkt := range s.standingPackets {
		s.InjectDataPacket(pkt.SrcID, pkt)
	}
}

// discoverNeighbors performs the O(n^2) pairwise range sweep: for every
// pair of routers and every interface profile they share, it compares
// their Euclidean distance against that profile's range and updates both
// routers' neighbor sets accordingly, emitting a LinkEvent on change.
func (s *Simulator) discoverNeighbors() {
	for i := 0; i < len(s.order); i++ {
		for j := i + 1; j < len(s.order); j++ {
			a, b := s.routers[s.order[i]], s.routers[s.order[j]]
			ax, ay := a.Position()
			bx, by := b.Position()
			dist := math.Hypot(ax-bx, ay-by)

			for _, prof := range s.profiles {
				pt := router.PathType(prof.PathType)
				inRange := dist <= prof.RangeMeters

				if a.SetNeighborPresence(pt, b.ID(), inRange) {
					s.emitLinkEvent(a.ID(), b.ID(), pt, inRange)
				}
				if b.SetNeighborPresence(pt, a.ID(), inRange) {
					s.emitLinkEvent(b.ID(), a.ID(), pt, inRange)
				}
			}
		}
	}
}

func (s *Simulator) emitLinkEvent(from, to router.ID, pt router.PathType, up bool) {
	if s.linkEvents == nil {
		return
	}
	action := api.Delete
	if up {
		action = api.Add
	}
	select {
	case s.linkEvents <- api.LinkEvent{Action: action, RouterID: string(from), Peer: string(to), Interface: string(pt)}:
	default:
	}
}

func (s *Simulator) publishSnapshot() {
	if s.snapshots == nil {
		return
	}
	snap := api.Snapshot{Tick: s.tick, Interfaces: make(map[string][]api.InterfaceSnapshot, len(s.order))}
	for _, id := range s.order {
		r := s.routers[id]
		x, y := r.Position()
		snap.Routers = append(snap.Routers, api.RouterSnapshot{
			ID:             string(id),
			X:              x,
			Y:              y,
			PrefixV4:       r.PrefixV4(),
			TransmittedNow: r.TransmittedNow(),
		})
		ifaces := make([]api.InterfaceSnapshot, 0, len(s.profiles))
		for _, prof := range r.Profiles() {
			peers := r.NeighborsOn(router.PathType(prof.PathType))
			peerStrs := make([]string, len(peers))
			for i, p := range peers {
				peerStrs[i] = string(p)
			}
			ifaces = append(ifaces, api.InterfaceSnapshot{PathType: prof.PathType, Range: prof.RangeMeters, Peers: peerStrs})
		}
		snap.Interfaces[string(id)] = ifaces
	}
	select {
	case s.snapshots <- snap:
	default:
	}
}

// Run drives Tick for the configured number of seconds, or until ctx is
// canceled, whichever comes first. One tick models one simulated second.
func (s *Simulator) Run(ctx context.Context) error {
	for i := 0; i < s.cfg.SimulationSeconds; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.Tick()
	}
	return nil
}

// Close releases every router's log file.
func (s *Simulator) Close() error {
	var first error
	for _, l := range s.loggers {
		if err := l.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RouterIDs returns every router id in the simulation, in sorted order.
func (s *Simulator) RouterIDs() []router.ID {
	return s.order
}

// FIBFor returns the current forwarding tables for id, for tests and
// diagnostics.
func (s *Simulator) FIBFor(id router.ID) (router.FIB, bool) {
	r, ok := s.routers[id]
	if !ok {
		return router.FIB{}, false
	}
	return r.FIB(), true
}
