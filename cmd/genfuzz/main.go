// Command genfuzz is the CLI entry point: run, replay, and demo
// subcommands plus a root --version flag over the coverage-guided
// generator fuzzer (spec §6), wired with Cobra the way the teacher's CLI
// was structured.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/genfuzz/genfuzz/internal/config"
	"github.com/genfuzz/genfuzz/internal/monitor"
	"github.com/genfuzz/genfuzz/internal/threadpool"
	"github.com/genfuzz/genfuzz/internal/tui"
	"github.com/genfuzz/genfuzz/internal/xlog"
	"github.com/genfuzz/genfuzz/pkg/choice"
	"github.com/genfuzz/genfuzz/pkg/corpus"
	"github.com/genfuzz/genfuzz/pkg/coverage"
	"github.com/genfuzz/genfuzz/pkg/guidance"
	"github.com/genfuzz/genfuzz/pkg/harness/demo"
	"github.com/genfuzz/genfuzz/pkg/persist"
	"github.com/genfuzz/genfuzz/pkg/scheduler"
	"github.com/genfuzz/genfuzz/pkg/trial"
)

// version is overridden at build time via -ldflags.
var version = "dev"

const banner = `
  ____  ___  ____  __ ____  ____ ____
 / ___)/ _ \|  _ \|  \ \  ||_  /|_  /
| |  _| | | | | | | | | | | / /  / /
| |_| | |_| | |_| | | | |_| / /__/ /_
 \____|\___/|____/|_| |_|___/____/___)
 coverage-guided generator fuzzer
`

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if isConfigError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func isConfigError(err error) bool {
	var cfgErr *guidance.ConfigurationError
	return errors.As(err, &cfgErr)
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:     "genfuzz",
		Short:   "coverage-guided, generator-based fuzzer",
		Version: version,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a genfuzz.yaml config file")

	root.AddCommand(newRunCmd(&configPath))
	root.AddCommand(newReplayCmd(&configPath))
	root.AddCommand(newDemoCmd())
	return root
}

func newRunCmd(configPath *string) *cobra.Command {
	var (
		class, method                       string
		in, out                             string
		engine                              string
		seed                                int64
		blind, noCov, fixedSize             bool
		admitOnDiversityGain                bool
		timeBudget                          string
		trials                              int64
		exitOnCrash                         bool
		runTimeout                          time.Duration
		saveAll, saveBranchHitCounts        bool
		statsRefreshMS                      int
		statsStyle                          string
		maxExecsPerSec                      float64
		tuiEnabled                          bool
		statusAddr                          string
		verbose                             bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a fuzzing session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			applyRunFlags(cfg, class, method, in, out, engine, seed, blind, noCov, fixedSize,
				admitOnDiversityGain, timeBudget, trials, exitOnCrash, runTimeout,
				saveAll, saveBranchHitCounts, statsRefreshMS, statsStyle, maxExecsPerSec,
				tuiEnabled, statusAddr, verbose)
			cfg.ApplyEngineDefaults()
			if err := cfg.Validate(); err != nil {
				return &guidance.ConfigurationError{Reason: err.Error()}
			}
			return runFuzz(cfg)
		},
	}

	cmd.Flags().StringVar(&class, "class", "", "target harness class/package")
	cmd.Flags().StringVar(&method, "method", "", "target harness method")
	cmd.Flags().StringVar(&in, "in", "", "seed directory (default \"in\")")
	cmd.Flags().StringVar(&out, "out", "", "output directory (default \"out\")")
	cmd.Flags().StringVar(&engine, "engine", "", "zest|zeal|bedivfuzz")
	cmd.Flags().Int64Var(&seed, "randomSeed", 0, "PRNG seed for deterministic runs")
	cmd.Flags().BoolVar(&blind, "blind", false, "blind mode; only checked by config validation, novelty-based admission stays on")
	cmd.Flags().BoolVar(&noCov, "noCov", false, "no-coverage mode (requires --blind); only checked by config validation, coverage tracing stays on")
	cmd.Flags().BoolVar(&fixedSize, "fixedSize", false, "disallow Choice Stream extension")
	cmd.Flags().BoolVar(&admitOnDiversityGain, "admitOnDiversityGain", false, "admit on Hill-number growth in addition to novelty")
	cmd.Flags().StringVar(&timeBudget, "time", "", "run duration, e.g. 1h30m")
	cmd.Flags().Int64Var(&trials, "trials", 0, "trial cap (0 = unbounded)")
	cmd.Flags().BoolVar(&exitOnCrash, "exitOnCrash", false, "stop after the first FAILURE")
	cmd.Flags().DurationVar(&runTimeout, "runTimeout", 0, "per-trial timeout (default 10s)")
	cmd.Flags().BoolVar(&saveAll, "saveAll", false, "save every input regardless of novelty")
	cmd.Flags().BoolVar(&saveBranchHitCounts, "saveBranchHitCounts", false, "write a branch_hit_counts snapshot on exit")
	cmd.Flags().IntVar(&statsRefreshMS, "statsRefreshTimePeriod", 0, "stats line refresh period, ms (default 3000)")
	cmd.Flags().StringVar(&statsStyle, "statsStyle", "", "afl|libfuzzer (default afl)")
	cmd.Flags().Float64Var(&maxExecsPerSec, "maxExecsPerSec", 0, "throttle execs/sec (0 = unbounded)")
	cmd.Flags().BoolVar(&tuiEnabled, "tui", false, "render the live dashboard instead of a stats line")
	cmd.Flags().StringVar(&statusAddr, "statusAddr", "", "serve a read-only status server at this address")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logging")

	return cmd
}

func applyRunFlags(cfg *config.Config, class, method, in, out, engine string, seed int64,
	blind, noCov, fixedSize, admitOnDiversityGain bool, timeBudget string, trials int64,
	exitOnCrash bool, runTimeout time.Duration, saveAll, saveBranchHitCounts bool,
	statsRefreshMS int, statsStyle string, maxExecsPerSec float64, tuiEnabled bool,
	statusAddr string, verbose bool) {

	if class != "" {
		cfg.Fuzz.Class = class
	}
	if method != "" {
		cfg.Fuzz.Method = method
	}
	if in != "" {
		cfg.Fuzz.In = in
	}
	if out != "" {
		cfg.Fuzz.Out = out
	}
	if engine != "" {
		cfg.Engine.Engine = config.Engine(engine)
	}
	if seed != 0 {
		cfg.Engine.RandomSeed = seed
	}
	cfg.Engine.Blind = cfg.Engine.Blind || blind
	cfg.Engine.NoCov = cfg.Engine.NoCov || noCov
	cfg.Engine.FixedSize = cfg.Engine.FixedSize || fixedSize
	cfg.Engine.AdmitOnDiversityGain = cfg.Engine.AdmitOnDiversityGain || admitOnDiversityGain
	if timeBudget != "" {
		cfg.Schedule.Time = timeBudget
	}
	if trials != 0 {
		cfg.Schedule.Trials = trials
	}
	cfg.Schedule.ExitOnCrash = cfg.Schedule.ExitOnCrash || exitOnCrash
	if runTimeout != 0 {
		cfg.Schedule.RunTimeout = runTimeout
	}
	if maxExecsPerSec != 0 {
		cfg.Schedule.MaxExecsPerSec = maxExecsPerSec
	}
	cfg.Output.SaveAll = cfg.Output.SaveAll || saveAll
	cfg.Output.SaveBranchHitCounts = cfg.Output.SaveBranchHitCounts || saveBranchHitCounts
	if statsRefreshMS != 0 {
		cfg.Output.StatsRefreshTimePeriod = statsRefreshMS
	}
	if statsStyle != "" {
		cfg.Output.StatsStyle = statsStyle
	}
	cfg.Output.TUI = cfg.Output.TUI || tuiEnabled
	if statusAddr != "" {
		cfg.Output.StatusAddr = statusAddr
	}
	cfg.Output.Verbose = cfg.Output.Verbose || verbose
}

func runFuzz(cfg *config.Config) error {
	level := xlog.LevelInfo
	if cfg.Output.Verbose {
		level = xlog.LevelDebug
	}

	duration, err := config.ParseDuration(cfg.Schedule.Time)
	if err != nil {
		return &guidance.ConfigurationError{Reason: err.Error()}
	}

	store, err := persist.NewStore(cfg.Fuzz.Out)
	if err != nil {
		return err
	}
	defer store.Close()

	logFile, err := os.OpenFile(filepath.Join(cfg.Fuzz.Out, "fuzz.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer logFile.Close()
	log := xlog.New(xlog.Config{Level: level, Format: xlog.FormatText, Output: logFile})
	log.Info("starting run", map[string]interface{}{"class": cfg.Fuzz.Class, "engine": string(cfg.Engine.Engine)})

	c, err := corpus.New(cfg.Fuzz.Out)
	if err != nil {
		return err
	}
	cumulative := coverage.NewCumulative()
	novelty := coverage.NewNoveltyFilter()
	failures := corpus.NewFailureRegistry()

	rng := rand.New(rand.NewSource(cfg.Engine.RandomSeed))
	sched := scheduler.New(scheduler.Config{
		SeedDir:     cfg.Fuzz.In,
		SplitMode:   cfg.SplitMode(),
		FixedSize:   cfg.Engine.FixedSize,
		Duration:    duration,
		TrialCap:    cfg.Schedule.Trials,
		ExitOnCrash: cfg.Schedule.ExitOnCrash,
	}, c, rng)

	runner := trial.New(trial.Config{
		SaveAll:              cfg.Output.SaveAll,
		AdmitOnDiversityGain: cfg.Engine.AdmitOnDiversityGain,
		DiversityEpsilon:     cfg.Engine.DiversityEpsilon,
		RunTimeout:           cfg.Schedule.RunTimeout,
		StatsRefreshPeriod:   time.Duration(cfg.Output.StatsRefreshTimePeriod) * time.Millisecond,
		MaxExecsPerSec:       cfg.Schedule.MaxExecsPerSec,
	}, sched, c, cumulative, novelty, failures, store)

	style := persist.StyleAFL
	if cfg.Output.StatsStyle == "libfuzzer" {
		style = persist.StyleLibFuzzer
	}
	// observedArgFields names the generator-argument fields pulled out of
	// ObserveGenerated's resolved-argument JSON for the fuzz.log line
	// (spec §11); pkg/harness/demo's Args resolves to {"X": <byte>}.
	observedArgFields := []string{"X"}

	runner.OnStatsLine(func(s trial.Snapshot) {
		if !cfg.Output.TUI {
			fmt.Println(persist.StatsLine(style, s))
		}
		if blob := runner.ObservedArgsJSON(); blob != "" {
			if fields := persist.ExtractFields(blob, observedArgFields); len(fields) > 0 {
				logFields := make(map[string]interface{}, len(fields))
				for k, v := range fields {
					logFields[k] = v
				}
				log.Debug("observed generator args", logFields)
			}
		}
		_ = store.AppendPlotRow(persist.PlotRow{
			Timestamp:       time.Now(),
			TotalExecs:      s.Stats.TotalExecs,
			ValidExecs:      s.Stats.ValidExecs,
			CorpusSize:      s.CorpusSize,
			CoveredBranches: int(s.Diversity.H0),
			H1:              s.Diversity.H1,
			H2:              s.Diversity.H2,
		})
	})

	if cfg.Output.StatusAddr != "" {
		srv := monitor.New(runner, cfg.Fuzz.Out, time.Duration(cfg.Output.StatsRefreshTimePeriod)*time.Millisecond)
		go func() {
			if err := srv.Listen(cfg.Output.StatusAddr); err != nil {
				log.Warn("status server stopped", map[string]interface{}{"error": err.Error()})
			}
		}()
		defer srv.Shutdown()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sched.RequestStop()
	}()

	pool, err := threadpool.New(4)
	if err != nil {
		return err
	}
	defer pool.Release()

	if cfg.Output.TUI {
		go func() { _ = tui.Run(runner, time.Second) }()
	}

	if err := demo.Run(runner, pool); err != nil {
		return err
	}

	if cfg.Output.SaveBranchHitCounts {
		if err := store.WriteBranchHitCounts(cumulative.Histogram()); err != nil {
			log.Warn("failed to write branch_hit_counts", map[string]interface{}{"error": err.Error()})
		}
	}

	if failures.Count() > 0 {
		log.Warn("run finished with failures", map[string]interface{}{"count": failures.Count()})
		os.Exit(1)
	}
	return nil
}

func newReplayCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <corpus-file>",
		Short: "re-execute one saved input and print its outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			stream := choice.NewLinear(data, true)
			genArgs, ok := demo.Generate(stream)
			if !ok {
				return &guidance.GuidanceError{Op: "replay", Err: fmt.Errorf("corpus file too short to decode a generator argument")}
			}

			outcome, resultErr := demo.Invoke(func(guidance.TraceEvent) {}, genArgs)
			fmt.Printf("outcome: %s\n", outcome)
			if resultErr != nil {
				fmt.Println(resultErr)
			}
			if outcome == guidance.Failure {
				os.Exit(1)
			}
			return nil
		},
	}
	return cmd
}

func newDemoCmd() *cobra.Command {
	var trials int64
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "fuzz the in-repo demo target (no external harness required)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Print(banner)

			c, err := corpus.New("")
			if err != nil {
				return err
			}
			cumulative := coverage.NewCumulative()
			novelty := coverage.NewNoveltyFilter()
			failures := corpus.NewFailureRegistry()
			rng := rand.New(rand.NewSource(1))

			sched := scheduler.New(scheduler.Config{
				TrialCap: trials,
			}, c, rng)

			runner := trial.New(trial.Config{
				StatsRefreshPeriod: time.Second,
			}, sched, c, cumulative, novelty, failures, nil)
			runner.OnStatsLine(func(s trial.Snapshot) {
				fmt.Println(persist.StatsLine(persist.StyleLibFuzzer, s))
			})

			pool, err := threadpool.New(2)
			if err != nil {
				return err
			}
			defer pool.Release()

			if err := demo.Run(runner, pool); err != nil {
				return err
			}
			fmt.Printf("corpus size: %d, failures: %d\n", c.Size(), failures.Count())
			return nil
		},
	}
	cmd.Flags().Int64Var(&trials, "trials", 5000, "trial cap")
	return cmd
}
