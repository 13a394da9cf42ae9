// Package telemetry exposes the simulator's per-tick state over gNMI, so
// an external collector can subscribe to a running simulation the same
// way it would subscribe to a real router's operational state.
package telemetry

import (
	"log"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"

	"github.com/hgn/mdvrd/pkg/api"
)

// update is whichever of the two observer event kinds arrived next; a
// subscriber channel carries these rather than two separate channel types
// so a single broadcast loop can fan out both kinds in arrival order.
type update struct {
	snapshot  *api.Snapshot
	linkEvent *api.LinkEvent
}

// GNMIServer implements the gNMI Subscribe RPC over a running
// simulation's snapshot and link-event streams.
type GNMIServer struct {
	gnmipb.UnimplementedGNMIServer

	snapshots  <-chan api.Snapshot
	linkEvents <-chan api.LinkEvent

	latestMu sync.RWMutex
	latest   *api.Snapshot

	subMu        sync.RWMutex
	subscribers  map[int64]chan update
	subIDCounter int64
}

// New creates a GNMIServer that fans out everything it reads from
// snapshots and linkEvents to every current Subscribe caller.
func New(snapshots <-chan api.Snapshot, linkEvents <-chan api.LinkEvent) *GNMIServer {
	s := &GNMIServer{
		snapshots:   snapshots,
		linkEvents:  linkEvents,
		subscribers: make(map[int64]chan update),
	}
	go s.broadcastLoop()
	return s
}

func (s *GNMIServer) broadcastLoop() {
	for {
		select {
		case snap, ok := <-s.snapshots:
			if !ok {
				s.snapshots = nil
				break
			}
			s.latestMu.Lock()
			s.latest = &snap
			s.latestMu.Unlock()
			s.sendToSubscribers(update{snapshot: &snap})
		case evt, ok := <-s.linkEvents:
			if !ok {
				s.linkEvents = nil
				break
			}
			s.sendToSubscribers(update{linkEvent: &evt})
		}
		if s.snapshots == nil && s.linkEvents == nil {
			return
		}
	}
}

func (s *GNMIServer) sendToSubscribers(u update) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for id, subChan := range s.subscribers {
		select {
		case subChan <- u:
		default:
			log.Printf("telemetry: subscriber %d channel full, dropping update", id)
		}
	}
}

// Subscribe implements the gNMI Subscribe RPC, streaming the most recent
// snapshot followed by every subsequent snapshot and link event.
func (s *GNMIServer) Subscribe(stream gnmipb.GNMI_SubscribeServer) error {
	req, err := stream.Recv()
	if err != nil {
		return err
	}
	if req.GetSubscribe().GetMode() != gnmipb.SubscriptionList_STREAM {
		return status.Errorf(codes.Unimplemented, "only STREAM mode is supported")
	}

	subChan := make(chan update, 100)
	s.subMu.Lock()
	s.subIDCounter++
	id := s.subIDCounter
	s.subscribers[id] = subChan
	s.subMu.Unlock()

	defer func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		close(subChan)
		s.subMu.Unlock()
	}()

	s.latestMu.RLock()
	latest := s.latest
	s.latestMu.RUnlock()
	if latest != nil {
		if err := sendNotification(stream, snapshotNotification(*latest)); err != nil {
			return err
		}
	}
	if err := stream.Send(&gnmipb.SubscribeResponse{
		Response: &gnmipb.SubscribeResponse_SyncResponse{SyncResponse: true},
	}); err != nil {
		return err
	}

	for {
		select {
		case u := <-subChan:
			var notif *gnmipb.Notification
			if u.snapshot != nil {
				notif = snapshotNotification(*u.snapshot)
			} else if u.linkEvent != nil {
				notif = linkEventNotification(*u.linkEvent)
			} else {
				continue
			}
			if err := sendNotification(stream, notif); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func sendNotification(stream gnmipb.GNMI_SubscribeServer, notif *gnmipb.Notification) error {
	return stream.Send(&gnmipb.SubscribeResponse{
		Response: &gnmipb.SubscribeResponse_Update{Update: notif},
	})
}

// snapshotNotification renders a per-tick Snapshot as one notification
// carrying four leaf updates per router, under
// /routers/router[id]/state/{x,y,prefix,transmitting}.
func snapshotNotification(snap api.Snapshot) *gnmipb.Notification {
	notif := &gnmipb.Notification{Timestamp: time.Now().UnixNano()}
	for _, r := range snap.Routers {
		base := []*gnmipb.PathElem{
			{Name: "routers"},
			{Name: "router", Key: map[string]string{"id": r.ID}},
			{Name: "state"},
		}
		notif.Update = append(notif.Update,
			leafUpdate(base, "x", &gnmipb.TypedValue{Value: &gnmipb.TypedValue_DoubleVal{DoubleVal: r.X}}),
			leafUpdate(base, "y", &gnmipb.TypedValue{Value: &gnmipb.TypedValue_DoubleVal{DoubleVal: r.Y}}),
			leafUpdate(base, "prefix", &gnmipb.TypedValue{Value: &gnmipb.TypedValue_StringVal{StringVal: r.PrefixV4}}),
			leafUpdate(base, "transmitting", &gnmipb.TypedValue{Value: &gnmipb.TypedValue_BoolVal{BoolVal: r.TransmittedNow}}),
		)
	}
	return notif
}

// linkEventNotification renders a neighbor appearing or disappearing as a
// single gNMI update or delete under
// /routers/router[id]/interfaces/interface[name]/neighbors/neighbor[peer].
func linkEventNotification(evt api.LinkEvent) *gnmipb.Notification {
	path := &gnmipb.Path{Elem: []*gnmipb.PathElem{
		{Name: "routers"},
		{Name: "router", Key: map[string]string{"id": evt.RouterID}},
		{Name: "interfaces"},
		{Name: "interface", Key: map[string]string{"name": evt.Interface}},
		{Name: "neighbors"},
		{Name: "neighbor", Key: map[string]string{"id": evt.Peer}},
	}}
	notif := &gnmipb.Notification{Timestamp: time.Now().UnixNano()}
	if evt.Action == api.Delete {
		notif.Delete = []*gnmipb.Path{path}
		return notif
	}
	notif.Update = []*gnmipb.Update{{
		Path: path,
		Val:  &gnmipb.TypedValue{Value: &gnmipb.TypedValue_BoolVal{BoolVal: true}},
	}}
	return notif
}

func leafUpdate(base []*gnmipb.PathElem, leaf string, val *gnmipb.TypedValue) *gnmipb.Update {
	elems := make([]*gnmipb.PathElem, len(base)+1)
	copy(elems, base)
	elems[len(base)] = &gnmipb.PathElem{Name: leaf}
	return &gnmipb.Update{Path: &gnmipb.Path{Elem: elems}, Val: val}
}
