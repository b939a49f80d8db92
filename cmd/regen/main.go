// Command regen activates the self-regeneration protocol against a routed
// Network XML artifact in response to a single link failure, producing a
// membership subnetwork and one per-source-node schedule via an external
// solver, degrading temporal slack parameters on repeated solver failure.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/signalsfoundry/ttnet-toolchain/internal/logging"
	"github.com/signalsfoundry/ttnet-toolchain/internal/observability"
	"github.com/signalsfoundry/ttnet-toolchain/regen"
	"github.com/signalsfoundry/ttnet-toolchain/schedule"
	"github.com/signalsfoundry/ttnet-toolchain/solver"
	"github.com/signalsfoundry/ttnet-toolchain/xmlio"
)

func main() {
	networkPath := flag.String("network", "", "path to the routed Network XML artifact produced by netgen")
	schedulePath := flag.String("schedule", "", "path to the Schedule XML produced by the external solver for the pre-failure network (required: supplies the offsets every non-affected frame's window computation reads)")
	workspaceDir := flag.String("workspace", "./regen-workspace", "directory for Membership/Node regeneration artifacts")
	failedLink := flag.Int("failed-link", -1, "index of the link to mark failed")
	atNS := flag.Int64("at", 0, "simulation time of the failure, in nanoseconds")

	periodProtocolNS := flag.Int64("period-protocol-ns", 0, "protocol period, in nanoseconds")
	timeProtocolNS := flag.Int64("time-protocol-ns", 0, "protocol time budget, in nanoseconds")
	minSwitchResidencyNS := flag.Int64("min-switch-residency-ns", 1000, "initial minimum switch residency time, in nanoseconds")
	timeBetweenFramesNS := flag.Int64("time-between-frames-ns", 1000, "initial minimum time between frames, in nanoseconds")
	candidatePaths := flag.Int("candidate-paths", 0, "number of shortest candidate recovery paths to retain (0 means the package default)")
	parallel := flag.Bool("parallel", false, "solve per-source-node subnetworks concurrently")

	solverPath := flag.String("solver-path", "./Scheduler", "path to the external solver executable")

	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	if *networkPath == "" || *schedulePath == "" || *failedLink < 0 {
		fmt.Fprintln(os.Stderr, "regen: -network, -schedule, and -failed-link are required")
		os.Exit(2)
	}

	tracingCfg := observability.TracingConfigFromEnv()
	shutdown, err := observability.InitTracing(ctx, tracingCfg, log)
	if err != nil {
		log.Error(ctx, "tracing init failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdown, log)

	regenCollector, err := observability.NewRegenCollector(nil)
	if err != nil {
		log.Error(ctx, "regen collector registration failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	routingCollector, err := observability.NewRoutingCollector(nil)
	if err != nil {
		log.Error(ctx, "routing collector registration failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	cfg := regen.Config{
		PeriodProtocolNS:         *periodProtocolNS,
		TimeProtocolNS:           *timeProtocolNS,
		MinimumSwitchResidencyNS: *minSwitchResidencyNS,
		TimeBetweenFramesNS:      *timeBetweenFramesNS,
		CandidatePathCount:       *candidatePaths,
		Parallel:                 *parallel,
	}

	sd := solver.Descriptor{
		Path: *solverPath,
		ArgsTemplate: func(inputPath, outputPath string) []string {
			return []string{inputPath, outputPath}
		},
		Runner: solver.ExecRunner{},
	}

	result, err := run(ctx, *networkPath, *schedulePath, *workspaceDir, *failedLink, *atNS, cfg, sd, log, regenCollector, routingCollector)
	if result != nil {
		log.Info(ctx, "regeneration finished",
			logging.String("state", result.State),
			logging.Int("affected_frames", len(result.AffectedFrames)),
			logging.Int("subnetworks", len(result.Subnetworks)),
			logging.Any("unrecoverable", result.Unrecoverable),
		)
		for _, w := range result.Warnings {
			log.Warn(ctx, "regeneration warning", logging.String("kind", w.Kind), logging.Int("frame_index", w.FrameIndex), logging.String("detail", w.Detail))
		}
	}
	if err != nil {
		log.Error(ctx, "regen failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, networkPath, schedulePath, workspaceDir string, failedLink int, atNS int64, cfg regen.Config, sd solver.Descriptor, log logging.Logger, regenCollector *observability.RegenCollector, routingCollector *observability.RoutingCollector) (*regen.Result, error) {
	nf, err := os.Open(networkPath)
	if err != nil {
		return nil, fmt.Errorf("open network: %w", err)
	}
	g, frames, hyperPeriodNS, err := xmlio.DecodeNetwork(nf)
	closeErr := nf.Close()
	if err != nil {
		return nil, fmt.Errorf("decode network: %w", err)
	}
	if closeErr != nil {
		return nil, closeErr
	}

	sf, err := os.Open(schedulePath)
	if err != nil {
		return nil, fmt.Errorf("open schedule: %w", err)
	}
	_, err = schedule.Ingest(sf, g, frames)
	closeErr = sf.Close()
	if err != nil {
		return nil, fmt.Errorf("ingest schedule: %w", err)
	}
	if closeErr != nil {
		return nil, closeErr
	}

	ws := regen.NewWorkspace(workspaceDir)
	planner := regen.NewPlanner(g, frames, hyperPeriodNS, cfg, sd, ws, log, regenCollector, routingCollector)

	return planner.ActivateProtocol(ctx, failedLink, atNS)
}
