package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/fieldsim/sim/integrate"
	"github.com/inference-sim/fieldsim/sim/trace"
)

var (
	configPath string  // Path to the problem file
	logLevel   string  // Log verbosity level
	steps      int     // Overrides solver.steps
	dt         float64 // Overrides solver.dt
	seed       int64   // Overrides the problem seed
	workers    int     // Overrides domain.workers
	traceLevel string  // Overrides the problem trace level
	metricsOut string  // File receiving the prometheus text exposition
	outputPath string  // File receiving the JSON run summary
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "fieldsim",
	Short: "Spectral field-evolution engine",
}

// runCmd builds a problem and integrates it in time
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Integrate a problem file in time",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		runID := uuid.NewString()
		log := logrus.WithField("run", runID)

		cfg, err := LoadProblem(configPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		applyOverrides(cmd, cfg)
		if cfg.Solver == nil {
			logrus.Fatalf("problem file %s has no solver section", configPath)
		}

		reg := prometheus.NewRegistry()
		p, err := BuildProblem(cfg, BuildOptions{Registerer: reg})
		if err != nil {
			logrus.Fatalf("building problem: %v", err)
		}
		log.Infof("starting run: steps=%d dt=%g order=%d seed=%d", cfg.Solver.Steps, cfg.Solver.Dt, cfg.Solver.Order, cfg.Seed)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err = p.Integrator.Run(ctx, cfg.Solver.Steps, progress(log, cfg.Solver.ReportEvery))
		if err != nil {
			log.Errorf("run stopped: %v", err)
		}

		summary := NewRunSummary(runID, p)
		if len(summary.Diverged) > 0 {
			log.Warnf("non-finite values in %v", summary.Diverged)
		}
		if perr := summary.Print(os.Stdout); perr != nil {
			logrus.Fatalf("%v", perr)
		}
		if outputPath != "" {
			if serr := summary.Save(outputPath); serr != nil {
				logrus.Fatalf("%v", serr)
			}
		}
		if metricsOut != "" {
			if merr := SaveMetrics(metricsOut, reg); merr != nil {
				logrus.Fatalf("%v", merr)
			}
		}
		if err != nil {
			stop()
			os.Exit(1)
		}
		log.Info("Simulation complete.")
	},
}

// validateCmd builds a problem without stepping it and prints the resolved order
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a problem file and print the resolved operator order",
	RunE: func(cmd *cobra.Command, args []string) error {
		setLogLevel()
		cfg, err := LoadProblem(configPath)
		if err != nil {
			return err
		}
		applyOverrides(cmd, cfg)
		p, err := BuildProblem(cfg, BuildOptions{})
		if err != nil {
			return err
		}
		return WriteOrderReport(cmd.OutOrStdout(), p)
	},
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// applyOverrides copies explicitly set flags over the problem file values.
func applyOverrides(cmd *cobra.Command, cfg *ProblemConfig) {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("workers") {
		cfg.Domain.Workers = workers
	}
	if flags.Changed("trace") {
		cfg.Trace = traceLevel
	}
	if cfg.Solver == nil {
		return
	}
	if flags.Changed("steps") {
		cfg.Solver.Steps = steps
	}
	if flags.Changed("dt") {
		cfg.Solver.Dt = dt
	}
}

// progress logs solver state every n steps. n <= 0 disables reporting.
func progress(log *logrus.Entry, n int) func(*integrate.SemiImplicit) error {
	if n <= 0 {
		return nil
	}
	return func(s *integrate.SemiImplicit) error {
		if s.Steps()%int64(n) == 0 {
			log.Infof("[step %06d] t=%g", s.Steps(), s.Time())
		}
		return nil
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	for _, c := range []*cobra.Command{runCmd, validateCmd} {
		c.Flags().StringVar(&configPath, "config", "", "Path to the problem YAML file")
		c.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
		c.Flags().Int64Var(&seed, "seed", 0, "Seed for noise initial conditions (overrides the problem file)")
		c.Flags().IntVar(&workers, "workers", 0, "Goroutines per spectral transform (overrides domain.workers)")
		c.Flags().StringVar(&traceLevel, "trace", string(trace.TraceLevelNone), "Evaluation trace level (none, operators)")
		_ = c.MarkFlagRequired("config")
	}
	runCmd.Flags().IntVar(&steps, "steps", 0, "Number of time steps (overrides solver.steps)")
	runCmd.Flags().Float64Var(&dt, "dt", 0, "Time step (overrides solver.dt)")
	runCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "Write prometheus metrics in text format to this file")
	runCmd.Flags().StringVar(&outputPath, "output", "", "Write the JSON run summary to this file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
