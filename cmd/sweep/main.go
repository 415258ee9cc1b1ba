// Command sweep runs the convergence study: the estimator over several
// dimensions and N = 2^k sample counts, then plots relative error against
// sqrt(N).
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ndsphere/internal/config"
	"ndsphere/internal/errors"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.GetCode(err) == errors.CodeConfigInvalid || errors.IsUsage(err) {
			os.Exit(1)
		}
		os.Exit(3)
	}
}

func newRootCmd() *cobra.Command {
	var (
		dims      string
		radius    float64
		minExp    int
		maxExp    int
		repeats   int
		workers   int
		outDir    string
		detailDim int
		execPath  string
		seed      uint64
		excel     bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Relative error vs sqrt(N) for Monte Carlo hypersphere volume",
		Long: `Run the estimator for every dimension and N = 2^k, k in [min-exp, max-exp],
then write convergence.png (log-log and linear panels), <d>Dconvergence.png for
the detail dimension and, with --xlsx, sweep.xlsx.

Settings default to the environment (SWEEP_*, NDSPHERE_SEED); flags override.

Example:
  sweep --dims 10,5,3 --min-exp 6 --max-exp 20 --workers 3 --seed 42`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("dims") {
				if cfg.Sweep.Dims, err = config.ParseDims(dims); err != nil {
					return err
				}
			}
			if flags.Changed("radius") {
				cfg.Sweep.Radius = radius
			}
			if flags.Changed("min-exp") {
				cfg.Sweep.MinExp = minExp
			}
			if flags.Changed("max-exp") {
				cfg.Sweep.MaxExp = maxExp
			}
			if flags.Changed("repeats") {
				cfg.Sweep.Repeats = repeats
			}
			if flags.Changed("workers") {
				cfg.Sweep.Workers = workers
			}
			if flags.Changed("exec") {
				cfg.Sweep.Exec = execPath
			}
			if flags.Changed("out") {
				cfg.Output.Dir = outDir
			}
			if flags.Changed("detail-dim") {
				cfg.Output.DetailDim = detailDim
			}
			if flags.Changed("xlsx") {
				cfg.Output.Excel = excel
			}
			if flags.Changed("seed") {
				cfg.Estimator.Seed = &seed
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			res, err := runSweep(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), res)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&dims, "dims", "10,5,3", "Comma separated dimensions")
	f.Float64Var(&radius, "radius", 1.0, "Sphere radius")
	f.IntVar(&minExp, "min-exp", 6, "Smallest N is 2^min-exp")
	f.IntVar(&maxExp, "max-exp", 24, "Largest N is 2^max-exp")
	f.IntVar(&repeats, "repeats", 1, "Estimates averaged per (d, N)")
	f.IntVar(&workers, "workers", 1, "Dimensions run in parallel")
	f.StringVar(&outDir, "out", ".", "Output directory for plots and tables")
	f.IntVar(&detailDim, "detail-dim", 10, "Dimension of the single-dimension plot (0 disables it)")
	f.StringVar(&execPath, "exec", "", "Run this ndsphere binary per point instead of calling the estimator directly")
	f.Uint64Var(&seed, "seed", 0, "Seed for reproducible sweeps (overrides NDSPHERE_SEED)")
	f.BoolVar(&excel, "xlsx", false, "Also write sweep.xlsx")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.WithCode(errors.CodeUsage, err)
	})

	return cmd
}
