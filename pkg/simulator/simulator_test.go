package simulator

import (
	"context"
	"testing"

	"github.com/hgn/mdvrd/pkg/config"
	"github.com/hgn/mdvrd/pkg/router"
)

func testConfig(t *testing.T, routerCount int) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.RouterCount = routerCount
	cfg.SimulationSeconds = 200
	cfg.AreaX, cfg.AreaY = 50, 50
	// A single wide-range interface keeps this deterministic and makes
	// every router reachable from every other for the duration of the run.
	cfg.Interfaces = []config.InterfaceConfig{
		{PathType: "wifi00", RangeMeters: 1000, BandwidthUnitsPerSec: 5000, LossPercent: 5},
	}
	cfg.LogDir = t.TempDir()
	return cfg
}

func TestTwoRoutersConverge(t *testing.T) {
	cfg := testConfig(t, 2)
	sim, err := New(cfg, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sim.Close()

	for i := 0; i < 100; i++ {
		sim.Tick()
	}

	ids := sim.RouterIDs()
	fib0, ok := sim.FIBFor(ids[0])
	if !ok {
		t.Fatalf("expected router %s to exist", ids[0])
	}
	if _, ok := fib0.LowLoss[ids[1]]; !ok {
		t.Fatalf("expected %s to have a low-loss route to %s after convergence", ids[0], ids[1])
	}
	if _, ok := fib0.HighBandwidth[ids[1]]; !ok {
		t.Fatalf("expected %s to have a bandwidth route to %s after convergence", ids[0], ids[1])
	}
}

func TestThreeRoutersLearnRouteToEveryPeer(t *testing.T) {
	cfg := testConfig(t, 3)
	sim, err := New(cfg, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sim.Close()

	for i := 0; i < 150; i++ {
		sim.Tick()
	}

	ids := sim.RouterIDs()
	for _, id := range ids {
		fib, _ := sim.FIBFor(id)
		for _, other := range ids {
			if other == id {
				continue
			}
			if _, ok := fib.LowLoss[other]; !ok {
				t.Fatalf("expected %s to have learned a route to %s, got %+v", id, other, fib.LowLoss)
			}
		}
	}
}

func TestRunRespectsContextCancellation(t *testing.T) {
	cfg := testConfig(t, 2)
	cfg.SimulationSeconds = 1_000_000
	sim, err := New(cfg, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sim.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sim.Run(ctx); err == nil {
		t.Fatalf("expected Run to return an error for an already-canceled context")
	}
}

func TestNewRejectsZeroRouterCount(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RouterCount = 0
	cfg.LogDir = t.TempDir()
	if _, err := New(cfg, Options{}); err == nil {
		t.Fatalf("expected an error for a zero router count")
	}
}

var _ router.PeerResolver = (*Simulator)(nil)
