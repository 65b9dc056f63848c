package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"google.golang.org/grpc"

	"github.com/mberk/shepherd/barrier"
	"github.com/mberk/shepherd/checkpoint"
	"github.com/mberk/shepherd/coordinator"
	"github.com/mberk/shepherd/coordinatorapi"
	protoapi "github.com/mberk/shepherd/coordinatorapi/proto"
	"github.com/mberk/shepherd/monitor"
	"github.com/mberk/shepherd/registry"
	"github.com/mberk/shepherd/shardplan"
)

var (
	appName = "shepherd-coordinator"
	appSha  = "populated-at-link-time"
	logger  *logrus.Entry
)

func main() {
	host, _ := os.Hostname()
	rootLogger := logrus.New()
	rootLogger.SetFormatter(new(logrus.JSONFormatter))
	logger = rootLogger.WithFields(logrus.Fields{
		"app":  appName,
		"sha":  appSha,
		"host": host,
	})

	if err := makeApp().Run(os.Args); err != nil {
		logger.WithField("err", err).Error("shutting down due to error")
		_ = os.Stderr.Sync()
		os.Exit(1)
	}
}

func makeApp() *cli.App {
	app := cli.NewApp()
	app.Name = appName
	app.Version = appSha
	app.Flags = []cli.Flag{
		cli.IntFlag{
			Name:   "grpc-port",
			Value:  8080,
			EnvVar: "GRPC_PORT",
			Usage:  "The port for exposing the gRPC endpoints for coordinating workers",
		},
		cli.StringFlag{
			Name:   "monitor-listen-addr",
			Value:  ":48855",
			EnvVar: "MONITOR_LISTEN_ADDR",
			Usage:  "The address to listen for incoming monitoring requests",
		},
		cli.IntFlag{
			Name:   "max-workers",
			Value:  4096,
			EnvVar: "MAX_WORKERS",
			Usage:  "The maximum number of concurrently registered workers",
		},
		cli.DurationFlag{
			Name:   "heartbeat-timeout",
			Value:  30 * time.Second,
			EnvVar: "HEARTBEAT_TIMEOUT",
			Usage:  "The silence period after which a worker is considered dead",
		},
		cli.DurationFlag{
			Name:   "sweep-interval",
			Value:  10 * time.Second,
			EnvVar: "SWEEP_INTERVAL",
			Usage:  "The time between subsequent liveness sweeps",
		},
		cli.DurationFlag{
			Name:   "barrier-timeout",
			Value:  5 * time.Minute,
			EnvVar: "BARRIER_TIMEOUT",
			Usage:  "The default timeout for barrier waits that do not specify one",
		},
		cli.IntFlag{
			Name:   "checkpoint-keep-count",
			Value:  0,
			EnvVar: "CHECKPOINT_KEEP_COUNT",
			Usage:  "The number of checkpoint records to retain in the ledger (0 retains everything)",
		},
		cli.IntFlag{
			Name:   "pprof-port",
			Value:  6060,
			EnvVar: "PPROF_PORT",
			Usage:  "The port for exposing pprof endpoints",
		},
	}
	app.Action = runMain
	return app
}

func runMain(appCtx *cli.Context) error {
	var wg sync.WaitGroup
	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	co, err := setupCoordinator(appCtx)
	if err != nil {
		return err
	}

	// Start liveness sweeper.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := co.Run(ctx); err != nil {
			logger.WithField("err", err).Error("liveness sweeper exited with error")
			cancelFn()
		}
	}()

	// Start gRPC server
	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", appCtx.Int("grpc-port")))
	if err != nil {
		return err
	}
	defer func() { _ = grpcListener.Close() }()

	wg.Add(1)
	go func() {
		defer wg.Done()
		srv := grpc.NewServer()
		protoapi.RegisterTrainingCoordinatorServer(srv, coordinatorapi.NewCoordinatorServer(co))
		logger.WithField("port", appCtx.Int("grpc-port")).Info("listening for gRPC connections")
		_ = srv.Serve(grpcListener)
	}()

	// Start monitoring server
	mon, err := monitor.NewMonitor(monitor.Config{
		Source:     co,
		ListenAddr: appCtx.String("monitor-listen-addr"),
		Logger:     logger.WithField("service", "monitor"),
	})
	if err != nil {
		return err
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mon.Serve(ctx); err != nil {
			logger.WithField("err", err).Error("monitoring server exited with error")
			cancelFn()
		}
	}()

	// Start pprof server
	pprofListener, err := net.Listen("tcp", fmt.Sprintf(":%d", appCtx.Int("pprof-port")))
	if err != nil {
		return err
	}
	defer func() { _ = pprofListener.Close() }()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.WithField("port", appCtx.Int("pprof-port")).Info("listening for pprof requests")
		srv := new(http.Server)
		_ = srv.Serve(pprofListener)
	}()

	// Start signal watcher
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGHUP)
		select {
		case s := <-sigCh:
			logger.WithField("signal", s.String()).Infof("shutting down due to signal")
			_ = grpcListener.Close()
			_ = pprofListener.Close()
			cancelFn()
		case <-ctx.Done():
		}
	}()

	// Keep running until we receive a signal
	wg.Wait()
	return nil
}

func setupCoordinator(appCtx *cli.Context) (*coordinator.Coordinator, error) {
	workers, err := registry.NewRegistry(registry.Config{
		MaxWorkers:       appCtx.Int("max-workers"),
		HeartbeatTimeout: appCtx.Duration("heartbeat-timeout"),
		Logger:           logger.WithField("service", "worker-registry"),
	})
	if err != nil {
		return nil, err
	}

	datasets, err := shardplan.NewPlanner(shardplan.PlannerConfig{
		Logger: logger.WithField("service", "shard-planner"),
	})
	if err != nil {
		return nil, err
	}

	barriers, err := barrier.NewCoordinator(barrier.Config{
		WorldSize:      workers.WorldSize,
		DefaultTimeout: appCtx.Duration("barrier-timeout"),
		Logger:         logger.WithField("service", "barrier-coordinator"),
	})
	if err != nil {
		return nil, err
	}

	checkpoints, err := checkpoint.NewRegistry(checkpoint.RegistryConfig{
		KeepCount: appCtx.Int("checkpoint-keep-count"),
		Logger:    logger.WithField("service", "checkpoint-ledger"),
	})
	if err != nil {
		return nil, err
	}

	host, _ := os.Hostname()
	return coordinator.New(coordinator.Config{
		Workers:       workers,
		Datasets:      datasets,
		Barriers:      barriers,
		Checkpoints:   checkpoints,
		Address:       fmt.Sprintf("%s:%d", host, appCtx.Int("grpc-port")),
		Version:       appSha,
		SweepInterval: appCtx.Duration("sweep-interval"),
		Logger:        logger.WithField("service", "coordinator"),
	})
}
