package telemetry

import (
	"testing"

	"github.com/hgn/mdvrd/pkg/api"
)

func TestSnapshotNotificationEmitsOneUpdateSetPerRouter(t *testing.T) {
	snap := api.Snapshot{
		Tick: 5,
		Routers: []api.RouterSnapshot{
			{ID: "r0", X: 1, Y: 2, PrefixV4: "10.0.0.0/24", TransmittedNow: true},
			{ID: "r1", X: 3, Y: 4, PrefixV4: "10.0.1.0/24", TransmittedNow: false},
		},
	}
	notif := snapshotNotification(snap)
	if len(notif.Update) != 8 {
		t.Fatalf("expected 4 leaves per router across 2 routers, got %d", len(notif.Update))
	}
}

func TestLinkEventNotificationAddVsDelete(t *testing.T) {
	up := linkEventNotification(api.LinkEvent{Action: api.Add, RouterID: "r0", Peer: "r1", Interface: "wifi00"})
	if len(up.Update) != 1 || len(up.Delete) != 0 {
		t.Fatalf("expected an Add event to produce an update, not a delete")
	}

	down := linkEventNotification(api.LinkEvent{Action: api.Delete, RouterID: "r0", Peer: "r1", Interface: "wifi00"})
	if len(down.Delete) != 1 || len(down.Update) != 0 {
		t.Fatalf("expected a Delete event to produce a delete, not an update")
	}
}
