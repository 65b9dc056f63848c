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

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"golang.org/x/xerrors"
	"google.golang.org/grpc"

	"github.com/mberk/shepherd/checkpoint"
	"github.com/mberk/shepherd/coordinatorapi"
	protoapi "github.com/mberk/shepherd/coordinatorapi/proto"
	"github.com/mberk/shepherd/worker"
)

var (
	appName = "shepherd-worker"
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
		cli.StringFlag{
			Name:   "coordinator-api",
			EnvVar: "COORDINATOR_API",
			Usage:  "The gRPC endpoint for connecting to the coordinator",
		},
		cli.StringFlag{
			Name:   "worker-id",
			EnvVar: "WORKER_ID",
			Usage:  "The unique ID to register under (defaults to a random UUID)",
		},
		cli.IntFlag{
			Name:   "port",
			EnvVar: "PORT",
			Usage:  "The port other workers can reach this worker on",
		},
		cli.IntFlag{
			Name:   "gpu-count",
			EnvVar: "GPU_COUNT",
			Usage:  "The number of accelerators attached to this worker",
		},
		cli.StringFlag{
			Name:   "checkpoint-dir",
			Value:  "/var/lib/shepherd/checkpoints",
			EnvVar: "CHECKPOINT_DIR",
			Usage:  "The directory for locally retained checkpoints",
		},
		cli.IntFlag{
			Name:   "checkpoint-keep-count",
			Value:  5,
			EnvVar: "CHECKPOINT_KEEP_COUNT",
			Usage:  "The number of local checkpoints to retain (oldest evicted first)",
		},
		cli.DurationFlag{
			Name:   "heartbeat-interval",
			Value:  10 * time.Second,
			EnvVar: "HEARTBEAT_INTERVAL",
			Usage:  "The time between subsequent heartbeats to the coordinator",
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

	coordinatorAPI, err := getCoordinatorAPI(ctx, appCtx.String("coordinator-api"))
	if err != nil {
		return err
	}

	checkpoints, err := checkpoint.NewManager(checkpoint.ManagerConfig{
		Dir:       appCtx.String("checkpoint-dir"),
		KeepCount: appCtx.Int("checkpoint-keep-count"),
		Logger:    logger.WithField("service", "checkpoint-manager"),
	})
	if err != nil {
		return err
	}
	defer func() { _ = checkpoints.Close() }()

	workerID := appCtx.String("worker-id")
	if workerID == "" {
		workerID = uuid.NewString()
	}

	agent, err := worker.NewAgent(worker.Config{
		API:               coordinatorAPI,
		WorkerID:          workerID,
		Port:              appCtx.Int("port"),
		GPUCount:          appCtx.Int("gpu-count"),
		Checkpoints:       checkpoints,
		HeartbeatInterval: appCtx.Duration("heartbeat-interval"),
		Logger:            logger.WithField("service", "worker-agent"),
	})
	if err != nil {
		return err
	}

	// Start worker agent.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := agent.Run(ctx); err != nil {
			logger.WithField("err", err).Error("worker agent exited with error")
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
			_ = pprofListener.Close()
			cancelFn()
		case <-ctx.Done():
		}
	}()

	// Keep running until we receive a signal
	wg.Wait()
	return nil
}

func getCoordinatorAPI(ctx context.Context, coordinatorAPI string) (*coordinatorapi.CoordinatorClient, error) {
	if coordinatorAPI == "" {
		return nil, xerrors.Errorf("coordinator API must be specified with --coordinator-api")
	}

	dialCtx, cancelFn := context.WithTimeout(ctx, 5*time.Second)
	defer cancelFn()
	coordinatorConn, err := grpc.DialContext(dialCtx, coordinatorAPI, grpc.WithInsecure(), grpc.WithBlock())
	if err != nil {
		return nil, xerrors.Errorf("could not connect to coordinator API: %w", err)
	}
	coordinatorCli := coordinatorapi.NewCoordinatorClient(ctx, protoapi.NewTrainingCoordinatorClient(coordinatorConn))

	return coordinatorCli, nil
}
