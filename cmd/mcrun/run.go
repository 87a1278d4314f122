package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/seantiz/montecarlo/internal/api"
	"github.com/seantiz/montecarlo/internal/config"
	"github.com/seantiz/montecarlo/internal/engine"
	"github.com/seantiz/montecarlo/internal/interrupt"
	"github.com/seantiz/montecarlo/internal/ising"
	"github.com/seantiz/montecarlo/internal/model"
	"github.com/seantiz/montecarlo/internal/reduce"
	"github.com/seantiz/montecarlo/internal/rng"
	"github.com/seantiz/montecarlo/internal/store"
	"github.com/seantiz/montecarlo/internal/telemetry"
)

const defaultCheckpointName = "latest"

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		serve  bool
		resume bool
		name   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an Ising simulation, write a checkpoint and print the results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("serve") {
				cfg.Serve = serve
			}
			if cmd.Flags().Changed("resume") {
				cfg.Checkpoint.Resume = resume
			}
			if cmd.Flags().Changed("name") {
				cfg.Checkpoint.Name = name
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runSimulation(ctx, cfg, opts.logger, cmd.ErrOrStderr(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&serve, "serve", false, "serve progress and checkpoints over HTTP while running")
	cmd.Flags().BoolVar(&resume, "resume", false, "resume from the named checkpoint and skip warmup")
	cmd.Flags().StringVar(&name, "name", "", "checkpoint name to resume from and write to")
	return cmd
}

// rank is one independent Markov chain of a simulation.
type rank struct {
	comm   reduce.Communicator
	engine *engine.Engine[float64]
	model  *ising.Model
}

// runOutput is the JSON document printed when a simulation ends.
type runOutput struct {
	RunID              string        `json:"run_id"`
	Status             string        `json:"status"`
	Ranks              int           `json:"ranks"`
	CurrentCycleNumber uint64        `json:"current_cycle_number"`
	WarmupTime         string        `json:"warmup_time"`
	AccumulationTime   string        `json:"accumulation_time"`
	Checkpoint         string        `json:"checkpoint"`
	Results            ising.Results `json:"results"`
}

func checkpointName(base string, rank int) string {
	if rank == 0 {
		return base
	}
	return fmt.Sprintf("%s-rank%d", base, rank)
}

func newRank(cfg config.Config, comm reduce.Communicator, logger *slog.Logger, report io.Writer) (*rank, error) {
	src, err := rng.New(cfg.Simulation.RNG, cfg.Simulation.Seed+int64(comm.Rank()))
	if err != nil {
		return nil, err
	}

	verbosity := cfg.Simulation.Verbosity
	if comm.Rank() != 0 {
		report, verbosity = io.Discard, 0
	}
	e := engine.New(src, 1.0,
		engine.WithReport(report, verbosity),
		engine.WithLogger(logger.With("rank", comm.Rank())),
		engine.WithLatch(interrupt.NewManual()),
		engine.WithDebug(cfg.Simulation.Debug),
	)

	m, err := ising.Register(e, ising.Params{
		Size:   cfg.Ising.Size,
		Beta:   cfg.Ising.Beta,
		Field:  cfg.Ising.Field,
		Verify: cfg.Simulation.Debug,
	})
	if err != nil {
		return nil, err
	}
	return &rank{comm: comm, engine: e, model: m}, nil
}

func runSimulation(ctx context.Context, cfg config.Config, logger *slog.Logger, report, out io.Writer) error {
	exporter := telemetry.ExporterNone
	if cfg.Tracing {
		exporter = telemetry.ExporterStdout
	}
	shutdown, err := telemetry.Setup(telemetry.Config{
		ServiceName:    "mcrun",
		ServiceVersion: version,
		Exporter:       exporter,
	})
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("shutdown tracing", "error", err)
		}
	}()

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	comms, err := reduce.NewGroup(cfg.Simulation.Ranks)
	if err != nil {
		return err
	}
	ranks := make([]*rank, len(comms))
	for i, comm := range comms {
		r, err := newRank(cfg, comm, logger, report)
		if err != nil {
			return fmt.Errorf("rank %d: %w", i, err)
		}
		ranks[i] = r
		defer r.engine.Close()
	}

	name := cfg.Checkpoint.Name
	if name == "" {
		name = defaultCheckpointName
	}
	nWarmup := cfg.Simulation.WarmupCycles
	if cfg.Checkpoint.Resume {
		for _, r := range ranks {
			cpName := checkpointName(name, r.comm.Rank())
			if err := engine.Read(ctx, db, cfg.Checkpoint.Group, cpName, r.engine); err != nil {
				return fmt.Errorf("resume rank %d: %w", r.comm.Rank(), err)
			}
		}
		nWarmup = 0
	}

	lead := ranks[0].engine
	logger.Info("simulation starting",
		"run_id", lead.RunID(),
		"ranks", len(ranks),
		"rng", cfg.Simulation.RNG,
		"n_warmup_cycles", nWarmup,
		"n_cycles", cfg.Simulation.Cycles,
		"length_cycle", cfg.Simulation.CycleLength,
	)

	serveErr := make(chan error, 1)
	serveCtx, stopServe := context.WithCancel(ctx)
	defer stopServe()
	if cfg.Serve {
		srv := api.NewServer(cfg.ListenAddr, db, lead, logger)
		go func() { serveErr <- srv.Run(serveCtx) }()
	} else {
		serveErr <- nil
	}

	// gctx only ends when a rank fails, so collectives still complete after
	// an interrupt. runCtx also ends on interrupt and stops the chains.
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	runCtx, cancelRun := context.WithCancel(gctx)
	defer cancelRun()
	stopOnSignal := context.AfterFunc(ctx, cancelRun)
	defer stopOnSignal()

	statuses := make([]model.Status, len(ranks))
	for i, r := range ranks {
		g.Go(func() error {
			status, err := r.engine.WarmupAndAccumulate(runCtx, nWarmup, cfg.Simulation.Cycles,
				cfg.Simulation.CycleLength, engine.MaxDuration(cfg.Simulation.MaxTime))
			if err != nil {
				return fmt.Errorf("rank %d: %w", i, err)
			}
			statuses[i] = status

			if err := engine.Write(gctx, db, cfg.Checkpoint.Group, checkpointName(name, i), r.engine); err != nil {
				return fmt.Errorf("rank %d: %w", i, err)
			}
			if err := r.engine.CollectResults(gctx, r.comm); err != nil {
				return fmt.Errorf("rank %d: %w", i, err)
			}
			return nil
		})
	}
	runErr := g.Wait()

	// Ends open report streams so shutdown does not wait on them.
	lead.Close()
	stopServe()
	if err := <-serveErr; err != nil {
		logger.Error("api server", "error", err)
	}
	if runErr != nil {
		return runErr
	}

	res := runOutput{
		RunID:              lead.RunID(),
		Status:             statuses[0].String(),
		Ranks:              len(ranks),
		CurrentCycleNumber: lead.CurrentCycleNumber(),
		WarmupTime:         lead.WarmupTimeHHMMSS(),
		AccumulationTime:   lead.AccumulationTimeHHMMSS(),
		Checkpoint:         cfg.Checkpoint.Group + "/" + name,
		Results:            ranks[0].model.Results(lead.AcceptanceRates()),
	}
	logger.Info("simulation ended", "run_id", res.RunID, "status", res.Status)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
