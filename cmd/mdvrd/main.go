// Command mdvrd runs a fixed-seed mobile distance-vector routing
// simulation to completion, writing one log file per router and, for the
// duration of the run, exporting live state over gNMI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	pb "github.com/openconfig/gnmi/proto/gnmi"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/hgn/mdvrd/pkg/api"
	"github.com/hgn/mdvrd/pkg/config"
	"github.com/hgn/mdvrd/pkg/simulator"
	"github.com/hgn/mdvrd/pkg/telemetry"
)

var configFile = flag.String("config", "config.json", "path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Printf("failed to load config from %s: %v. using defaults.", *configFile, err)
		cfg = config.DefaultConfig()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	snapshots := make(chan api.Snapshot, 64)
	linkEvents := make(chan api.LinkEvent, 1024)

	sim, err := simulator.New(cfg, simulator.Options{Snapshots: snapshots, LinkEvents: linkEvents})
	if err != nil {
		log.Fatalf("failed to build simulation: %v", err)
	}
	defer sim.Close()

	ts := telemetry.New(snapshots, linkEvents)

	g, ctx := errgroup.WithContext(ctx)

	// 1. Simulation loop.
	g.Go(func() error {
		// Once the run is over, stop the telemetry server too so the
		// process exits.
		defer cancel()
		defer close(snapshots)
		defer close(linkEvents)
		return sim.Run(ctx)
	})

	// 2. gRPC/gNMI telemetry server.
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GNMIPort))
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	grpcServer := grpc.NewServer()
	pb.RegisterGNMIServer(grpcServer, ts)
	reflection.Register(grpcServer)

	g.Go(func() error {
		log.Printf("telemetry server listening at %v", lis.Addr())
		errChan := make(chan error, 1)
		go func() {
			errChan <- grpcServer.Serve(lis)
		}()

		select {
		case <-ctx.Done():
			grpcServer.GracefulStop()
			return <-errChan
		case err := <-errChan:
			return err
		}
	})

	fmt.Printf("mdvrd running: %d routers, %ds simulated. press Ctrl+C to stop early.\n", cfg.RouterCount, cfg.SimulationSeconds)
	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Printf("simulation stopped: %v", err)
	}
	fmt.Println("mdvrd stopped.")
}
