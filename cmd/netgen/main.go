// Command netgen builds a TT-Ethernet network and a routed, scheduled
// traffic set from a Configuration XML description and writes the result
// as a Network XML artifact.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/signalsfoundry/ttnet-toolchain/internal/logging"
	"github.com/signalsfoundry/ttnet-toolchain/internal/observability"
	"github.com/signalsfoundry/ttnet-toolchain/routing"
	"github.com/signalsfoundry/ttnet-toolchain/traffic"
	"github.com/signalsfoundry/ttnet-toolchain/xmlio"
)

func main() {
	configPath := flag.String("config", "", "path to the Configuration XML input")
	outPath := flag.String("out", "network.xml", "path to write the Network XML artifact")
	seed := flag.Uint64("seed", 1, "deterministic traffic generator seed")

	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "netgen: -config is required")
		os.Exit(2)
	}

	tracingCfg := observability.TracingConfigFromEnv()
	shutdown, err := observability.InitTracing(ctx, tracingCfg, log)
	if err != nil {
		log.Error(ctx, "tracing init failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdown, log)

	routingCollector, err := observability.NewRoutingCollector(nil)
	if err != nil {
		log.Error(ctx, "routing collector registration failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	if err := run(ctx, *configPath, *outPath, *seed, log, routingCollector); err != nil {
		log.Error(ctx, "netgen failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, outPath string, seed uint64, log logging.Logger, routingCollector *observability.RoutingCollector) error {
	f, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := xmlio.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	g, err := cfg.BuildGraph()
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}

	endSystems := g.EndSystems()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	frames, err := traffic.Generate(g, endSystems, cfg.GeneratorConfig, rng)
	if err != nil {
		return fmt.Errorf("generate traffic: %w", err)
	}
	log.Info(ctx, "generated frames", logging.Int("count", len(frames)), logging.Int("end_systems", len(endSystems)))

	planner := routing.NewPlanner(g, cfg.PeriodProtocolNS, cfg.TimeProtocolNS, log, routingCollector)
	feasible, err := planner.Route(ctx, frames)
	if err != nil {
		return fmt.Errorf("route frames: %w", err)
	}
	if !feasible {
		log.Warn(ctx, "network is not schedulable at the generated offered load", logging.Any("average_utilization", planner.AverageUtilization()))
	}
	g.LockRouting()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	if err := xmlio.EncodeNetwork(out, g, frames, planner); err != nil {
		return fmt.Errorf("encode network: %w", err)
	}
	log.Info(ctx, "wrote network artifact", logging.String("path", outPath), logging.Any("hyper_period_ns", planner.HyperPeriod()))
	return nil
}
