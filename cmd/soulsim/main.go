// Command soulsim runs the animus organism: a seed-deterministic,
// self-regulating numerical creature descending its own energy landscape.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/animus/internal/organism"
	"github.com/talgya/animus/internal/persistence"
)

func main() {
	var (
		seed     = flag.Int64("seed", 42, "organism seed")
		steps    = flag.Int("steps", 1000, "steps to run")
		capacity = flag.Int("capacity", 1000, "episodic memory capacity")
		dbPath   = flag.String("db", "", "sqlite path for run storage (empty disables persistence)")
		verbose  = flag.Bool("verbose", false, "log run progress")
		ensemble = flag.Int("ensemble", 1, "independent organisms on seeds seed..seed+n-1")
		quick    = flag.Bool("quick", false, "small-dimension organism")
		noMon    = flag.Bool("no-monitor", false, "disable the monitor")
		inspect  = flag.String("inspect", "", "inspect a stored run id, or 'list', then exit")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("ANIMUS — self-regulating numerical organism")

	// ── Database ──────────────────────────────────────────────────────
	var db *persistence.DB
	if *dbPath != "" {
		var err error
		db, err = persistence.Open(*dbPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("database opened", "path", *dbPath)
	}

	// ── Inspect mode ──────────────────────────────────────────────────
	if *inspect != "" {
		if db == nil {
			slog.Error("-inspect requires -db")
			os.Exit(1)
		}
		if err := runInspect(db, *inspect); err != nil {
			slog.Error("inspect failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// ── Configuration ─────────────────────────────────────────────────
	cfg := organism.DefaultConfig(*seed)
	if *quick {
		cfg = organism.QuickConfig(*seed)
	}
	cfg.MemoryCapacity = *capacity
	cfg.Monitoring = !*noMon

	// ── Interrupt handling ────────────────────────────────────────────
	// Cancellation is step-granular: we simply stop asking for steps.
	stop := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, stopping", "signal", sig)
		close(stop)
	}()

	// ── Run ───────────────────────────────────────────────────────────
	if *ensemble > 1 {
		if err := runEnsemble(cfg, *ensemble, *steps, db, stop); err != nil {
			slog.Error("ensemble failed", "error", err)
			os.Exit(1)
		}
		return
	}

	o, err := runOne(cfg, *steps, *verbose, stop)
	if err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
	printSummary(o)

	if db != nil {
		id, err := db.SaveRun(o)
		if err != nil {
			slog.Error("save failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Run stored as %s.\n", id)
	}
}

// runOne builds an organism and steps it in chunks, checking for an
// interrupt between chunks.
func runOne(cfg organism.Config, steps int, verbose bool, stop <-chan struct{}) (*organism.Organism, error) {
	o, err := organism.New(cfg)
	if err != nil {
		return nil, err
	}
	const chunk = 100
	done := 0
	for done < steps {
		select {
		case <-stop:
			slog.Info("run interrupted", "completed", done, "requested", steps)
			return o, nil
		default:
		}
		n := min(chunk, steps-done)
		o.Run(n, verbose)
		done += n
	}
	return o, nil
}

// runEnsemble steps n independent organisms concurrently, one goroutine
// each. Seeds are consecutive; trajectories stay fully independent.
func runEnsemble(base organism.Config, n, steps int, db *persistence.DB, stop <-chan struct{}) error {
	type result struct {
		seed    int64
		summary organism.Summary
		safety  organism.Safety
		id      string
	}
	results := make([]result, n)

	g := new(errgroup.Group)
	for i := 0; i < n; i++ {
		i := i
		cfg := base
		cfg.Seed = base.Seed + int64(i)
		g.Go(func() error {
			o, err := runOne(cfg, steps, false, stop)
			if err != nil {
				return fmt.Errorf("seed %d: %w", cfg.Seed, err)
			}
			r := result{seed: cfg.Seed, summary: o.Metrics(), safety: o.SafetyProperties()}
			if db != nil {
				id, err := db.SaveRun(o)
				if err != nil {
					return fmt.Errorf("save seed %d: %w", cfg.Seed, err)
				}
				r.id = id
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("\nEnsemble of %d organisms, %s steps each:\n", n, humanize.Comma(int64(steps)))
	for _, r := range results {
		line := fmt.Sprintf("  seed %-6d novelty %.3f  stress %.3f  energy %.3f  mode %s",
			r.seed, r.summary.Novelty.Mean, r.summary.Stress.Mean,
			r.summary.Energy.Mean, r.summary.Monitor.Mode)
		if !r.safety.All() {
			line += "  SAFETY VIOLATION"
		}
		if r.id != "" {
			line += "  run " + r.id
		}
		fmt.Println(line)
	}
	return nil
}

func printSummary(o *organism.Organism) {
	sum := o.Metrics()
	safety := o.SafetyProperties()

	fmt.Printf("\nOrganism lived %s steps (seed %d).\n", humanize.Comma(int64(sum.Steps)), sum.Seed)
	fmt.Printf("  novelty   mean %.3f  var %.4f  range [%.3f, %.3f]\n",
		sum.Novelty.Mean, sum.Novelty.Variance, sum.Novelty.Min, sum.Novelty.Max)
	fmt.Printf("  coherence mean %.3f  var %.4f\n", sum.Coherence.Mean, sum.Coherence.Variance)
	fmt.Printf("  stress    mean %.3f  range [%.3f, %.3f]\n",
		sum.Stress.Mean, sum.Stress.Min, sum.Stress.Max)
	fmt.Printf("  energy    mean %.3f  range [%.3f, %.3f]\n",
		sum.Energy.Mean, sum.Energy.Min, sum.Energy.Max)
	fmt.Printf("  memory    %d/%d entries, health %.2f\n",
		sum.Memory.Size, sum.Memory.Capacity, sum.MemoryHealth)
	fmt.Printf("  gradient  analytical %d, finite-diff %d, heuristic %d, emergency %d\n",
		sum.Gradient.Served["analytical"], sum.Gradient.Served["finite-difference"],
		sum.Gradient.Served["heuristic"], sum.Gradient.Emergency)
	fmt.Printf("  recovery  soft %d, hard %d, emergency %d, panics %d\n",
		sum.Recovery.SoftRepairs, sum.Recovery.HardResets, sum.Recovery.Emergencies, sum.Panics)
	fmt.Printf("  monitor   mode %s, peak severity %s, transitions %d\n",
		sum.Monitor.Mode, sum.Monitor.PeakSeverity, sum.Monitor.Transitions)

	if safety.All() {
		fmt.Println("All safety properties hold.")
	} else {
		fmt.Printf("SAFETY VIOLATIONS: %+v\n", safety)
	}
}

func runInspect(db *persistence.DB, target string) error {
	if target == "list" {
		runs, err := db.ListRuns()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No stored runs.")
			return nil
		}
		fmt.Printf("%d stored runs:\n", len(runs))
		for _, r := range runs {
			created := r.CreatedAt
			if t, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
				created = humanize.Time(t)
			}
			fmt.Printf("  %s  seed %-6d  %s steps  %s\n",
				r.ID, r.Seed, humanize.Comma(int64(r.Steps)), created)
		}
		return nil
	}

	run, err := db.LoadRun(target)
	if err != nil {
		return err
	}
	fmt.Printf("Run %s (seed %d, %s steps, %s)\n",
		run.ID, run.Seed, humanize.Comma(int64(run.Steps)), humanize.Time(run.CreatedAt))
	fmt.Printf("  dims %d  capacity %d  monitoring %v\n",
		run.Config.Dims.Total(), run.Config.MemoryCapacity, run.Config.Monitoring)
	fmt.Printf("  novelty mean %.3f  stress mean %.3f  energy mean %.3f\n",
		run.Summary.Novelty.Mean, run.Summary.Stress.Mean, run.Summary.Energy.Mean)
	fmt.Printf("  final vitals: resources %.2f/%.2f/%.2f  gains %.2f/%.2f/%.2f\n",
		run.Vitals.Resources[0], run.Vitals.Resources[1], run.Vitals.Resources[2],
		run.Vitals.Gains[0], run.Vitals.Gains[1], run.Vitals.Gains[2])

	rows, err := db.RunMetrics(target, 10)
	if err != nil {
		return err
	}
	fmt.Println("  last steps:")
	for _, m := range rows {
		fmt.Printf("    step %-6d novelty %.3f  energy %7.3f  |grad| %.3f  %s\n",
			m.Step, m.Novelty, m.Energy, m.GradientNorm, m.Mode)
	}
	return nil
}
