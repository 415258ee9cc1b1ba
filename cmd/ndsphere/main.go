// Command ndsphere estimates the volume of a d-dimensional ball of radius r
// from N uniform samples and prints a labelled report:
//
//	ndsphere <d> <N> <r> [--seed S]
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"ndsphere/domain/sphere"
	"ndsphere/internal/config"
	"ndsphere/internal/errors"
	"ndsphere/internal/estimator"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Exit statuses.
const (
	exitOK         = 0
	exitUsage      = 1
	exitDegenerate = 2
	exitFailure    = 3
)

const usageLine = "Usage: ndsphere <d:int> <N:int> <r:float> [--seed S]"

func main() {
	// A missing .env file is normal; NDSPHERE_SEED may come from the environment.
	_ = godotenv.Load()

	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command and maps its error to an exit status. Nothing is
// written to stdout unless the estimate succeeds.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout)
	cmd.SetArgs(args)
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	switch {
	case err == nil:
		return exitOK
	case errors.IsUsage(err):
		fmt.Fprintln(stderr, usageLine)
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	case errors.IsInvalidInput(err):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	case errors.IsDegenerate(err):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitDegenerate
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var seed uint64

	cmd := &cobra.Command{
		Use:   "ndsphere <d> <N> <r>",
		Short: "Monte Carlo volume of a d-dimensional hypersphere",
		Long: `Sample N points uniformly from the cube [-r, r]^d, count those inside the
ball of radius r, and print the volume estimate, its statistical uncertainty
and its relative error against the closed-form volume.

The random source is fresh on every run unless --seed or NDSPHERE_SEED is set.

Example: ndsphere 3 1000000 1.0`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 3 {
				return errors.Usage(fmt.Sprintf("expected 3 arguments, got %d", len(args)))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args)
			if err != nil {
				return err
			}

			est, err := newEstimator(cmd.Flags().Changed("seed"), seed)
			if err != nil {
				return err
			}

			res, err := est.Estimate(params)
			if err != nil {
				return err
			}
			return estimator.WriteReport(stdout, res)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.WithCode(errors.CodeUsage, err)
	})

	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for a reproducible random source (overrides NDSPHERE_SEED)")

	return cmd
}

// parseParams reads the positional arguments d, N and r.
func parseParams(args []string) (sphere.Params, error) {
	d, err := strconv.Atoi(args[0])
	if err != nil {
		return sphere.Params{}, errors.Usage("please provide valid integers and doubles as arguments: d must be an integer")
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return sphere.Params{}, errors.Usage("please provide valid integers and doubles as arguments: N must be an integer")
	}
	r, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return sphere.Params{}, errors.Usage("please provide valid integers and doubles as arguments: r must be a number")
	}
	return sphere.Params{Dim: d, Samples: n, Radius: r}, nil
}

func newEstimator(seedFlagSet bool, seed uint64) (*estimator.Estimator, error) {
	if seedFlagSet {
		return estimator.NewSeeded(seed), nil
	}
	cfg, err := config.LoadEstimator()
	if err != nil {
		return nil, err
	}
	if cfg.Seed != nil {
		return estimator.NewSeeded(*cfg.Seed), nil
	}
	return estimator.New(), nil
}
