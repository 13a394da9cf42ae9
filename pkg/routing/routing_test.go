package routing

import (
	"testing"

	"github.com/hgn/mdvrd/pkg/interfaceprofile"
	"github.com/hgn/mdvrd/pkg/router"
	"github.com/hgn/mdvrd/pkg/simrand"
)

func newTestRouter(id router.ID, profiles []interfaceprofile.Profile) *router.Router {
	return router.NewRouter(router.Params{
		ID:           id,
		PrefixV4:     string(id) + ".0.0.0/24",
		AreaX:        1000,
		AreaY:        1000,
		TxInterval:   30,
		TxJitterMax:  7,
		DeadInterval: 91,
		DefaultTTL:   16,
		MinVelocity:  1,
		MaxVelocity:  5,
		Profiles:     profiles,
	}, simrand.New(1), nil, Engine{})
}

func TestComputeDirectNeighborPrefersLowerLoss(t *testing.T) {
	profiles := []interfaceprofile.Profile{
		{PathType: "wifi00", LossPercent: 5, BandwidthUnitsPerSec: 5000},
		{PathType: "tetra00", LossPercent: 10, BandwidthUnitsPerSec: 2000},
	}
	r0 := newTestRouter("r0", profiles)
	r0.SetNeighborPresence("wifi00", "r1", true)
	r0.SetNeighborPresence("tetra00", "r1", true)

	fib := Engine{}.Compute(r0)
	entry, ok := fib.LowLoss["r1"]
	if !ok {
		t.Fatalf("expected a low-loss route to r1")
	}
	if entry.Interface != "wifi00" {
		t.Fatalf("expected wifi00 (lower loss) selected, got %s", entry.Interface)
	}

	bwEntry, ok := fib.HighBandwidth["r1"]
	if !ok {
		t.Fatalf("expected a bandwidth route to r1")
	}
	if bwEntry.Interface != "wifi00" {
		t.Fatalf("expected wifi00 (higher bandwidth) selected, got %s", bwEntry.Interface)
	}
}

func TestComputeDivergentLossAndBandwidthInterfaces(t *testing.T) {
	// tetra00 has the lowest loss but far from the highest bandwidth;
	// wifi00 has the highest bandwidth but far from the lowest loss. The
	// low-loss FIB must pick tetra00 and the high-bandwidth FIB must pick
	// wifi00 for the very same neighbor.
	profiles := []interfaceprofile.Profile{
		{PathType: "tetra00", LossPercent: 2, BandwidthUnitsPerSec: 1000},
		{PathType: "wifi00", LossPercent: 20, BandwidthUnitsPerSec: 9000},
	}
	r0 := newTestRouter("r0", profiles)
	r0.SetNeighborPresence("tetra00", "r1", true)
	r0.SetNeighborPresence("wifi00", "r1", true)

	fib := Engine{}.Compute(r0)
	entry, ok := fib.LowLoss["r1"]
	if !ok {
		t.Fatalf("expected a low-loss route to r1")
	}
	if entry.Interface != "tetra00" {
		t.Fatalf("expected tetra00 (lower loss) selected for the low-loss FIB, got %s", entry.Interface)
	}

	bwEntry, ok := fib.HighBandwidth["r1"]
	if !ok {
		t.Fatalf("expected a bandwidth route to r1")
	}
	if bwEntry.Interface != "wifi00" {
		t.Fatalf("expected wifi00 (higher bandwidth) selected for the high-bandwidth FIB, got %s", bwEntry.Interface)
	}
}

func TestComputeTransitiveRouteViaNeighborFIB(t *testing.T) {
	profiles := []interfaceprofile.Profile{{PathType: "wifi00", LossPercent: 5, BandwidthUnitsPerSec: 5000}}
	r0 := newTestRouter("r0", profiles)
	r0.SetNeighborPresence("wifi00", "r1", true)

	neighborFIB := router.NewFIB()
	neighborFIB.LowLoss["r2"] = router.FIBEntry{
		NextHop:    "r2",
		Interface:  "wifi00",
		FullPath:   []router.ID{"r2", "r1"},
		Networks:   []string{"r2.0.0.0/24"},
		HopWeights: []float64{5},
	}
	r0.ReceiveRoutePacket("wifi00", router.RoutingPacket{
		RouterID:     "r1",
		SequenceNo:   1,
		Networks:     []string{"r1.0.0.0/24"},
		RoutingPaths: neighborFIB,
	}, 0)

	fib := Engine{}.Compute(r0)
	entry, ok := fib.LowLoss["r2"]
	if !ok {
		t.Fatalf("expected a transitively learned route to r2, got %+v", fib.LowLoss)
	}
	if entry.NextHop != "r1" {
		t.Fatalf("expected next hop r1, got %s", entry.NextHop)
	}
	wantPath := []router.ID{"r2", "r1", "r0"}
	if len(entry.FullPath) != len(wantPath) {
		t.Fatalf("expected full path %v, got %v", wantPath, entry.FullPath)
	}
	for i := range wantPath {
		if entry.FullPath[i] != wantPath[i] {
			t.Fatalf("expected full path %v, got %v", wantPath, entry.FullPath)
		}
	}
	if entry.Networks == nil || entry.Networks[0] != "r2.0.0.0/24" {
		t.Fatalf("expected r2's originated network carried through, got %v", entry.Networks)
	}
}

func TestComputeNoRouteWithoutNeighbors(t *testing.T) {
	r0 := newTestRouter("r0", interfaceprofile.DefaultProfiles())
	fib := Engine{}.Compute(r0)
	if len(fib.LowLoss) != 0 || len(fib.HighBandwidth) != 0 {
		t.Fatalf("expected empty tables for an isolated router, got %+v", fib)
	}
}

func TestWidestPathPrefersHigherBottleneck(t *testing.T) {
	// r0 -- r1 (bw 10000) -- r2 (bw 1000)   bottleneck 1000
	// r0 -- r3 (bw 3000)  -- r2 (bw 3000)   bottleneck 3000, should win
	profiles := []interfaceprofile.Profile{{PathType: "wifi00", LossPercent: 5, BandwidthUnitsPerSec: 10000}}
	r0 := newTestRouter("r0", profiles)
	r0.SetNeighborPresence("wifi00", "r1", true)
	r0.SetNeighborPresence("wifi00", "r3", true)

	via1 := router.NewFIB()
	via1.HighBandwidth["r2"] = router.FIBEntry{
		NextHop: "r2", FullPath: []router.ID{"r2", "r1"}, HopWeights: []float64{1000},
	}
	r0.ReceiveRoutePacket("wifi00", router.RoutingPacket{RouterID: "r1", SequenceNo: 1, RoutingPaths: via1}, 0)

	via3 := router.NewFIB()
	via3.HighBandwidth["r2"] = router.FIBEntry{
		NextHop: "r2", FullPath: []router.ID{"r2", "r3"}, HopWeights: []float64{3000},
	}
	r0.ReceiveRoutePacket("wifi00", router.RoutingPacket{RouterID: "r3", SequenceNo: 1, RoutingPaths: via3}, 0)

	fib := Engine{}.Compute(r0)
	entry, ok := fib.HighBandwidth["r2"]
	if !ok {
		t.Fatalf("expected a bandwidth route to r2")
	}
	if entry.NextHop != "r3" {
		t.Fatalf("expected the higher-bottleneck path via r3, got next hop %s", entry.NextHop)
	}
}
