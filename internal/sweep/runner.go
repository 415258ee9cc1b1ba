package sweep

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync/atomic"

	"ndsphere/domain/sphere"
	"ndsphere/internal/errors"
	"ndsphere/internal/estimator"
)

// Runner produces one estimate for a sweep point.
type Runner interface {
	Estimate(ctx context.Context, p sphere.Params) (sphere.EstimationResult, error)
}

// RunnerFactory builds the runner used for one dimension. Each dimension
// gets its own runner so parallel jobs never share a random source.
type RunnerFactory func(dim int) Runner

// InProcess calls the estimator directly.
type InProcess struct {
	est *estimator.Estimator
}

// NewInProcess wraps an estimator as a Runner.
func NewInProcess(est *estimator.Estimator) *InProcess {
	return &InProcess{est: est}
}

// Estimate implements Runner.
func (r *InProcess) Estimate(ctx context.Context, p sphere.Params) (sphere.EstimationResult, error) {
	if err := ctx.Err(); err != nil {
		return sphere.EstimationResult{}, err
	}
	return r.est.Estimate(p)
}

// InProcessFactory returns a factory of direct-call runners. With a nil seed
// every estimate draws fresh randomness; otherwise dimension d uses the
// stream (seed, d).
func InProcessFactory(seed *uint64) RunnerFactory {
	return func(dim int) Runner {
		if seed == nil {
			return NewInProcess(estimator.New())
		}
		return NewInProcess(estimator.NewWithSource(estimator.SeededSource(*seed, uint64(dim))))
	}
}

// Subprocess runs an external ndsphere binary per estimate and parses its
// text report.
type Subprocess struct {
	Path string
	// Seed, when set, is mixed with (d, N) and the call count and passed
	// as --seed.
	Seed *uint64

	calls atomic.Uint64
}

// SubprocessFactory returns a factory of runners that exec path.
func SubprocessFactory(path string, seed *uint64) RunnerFactory {
	return func(int) Runner {
		return &Subprocess{Path: path, Seed: seed}
	}
}

// Estimate implements Runner.
func (s *Subprocess) Estimate(ctx context.Context, p sphere.Params) (sphere.EstimationResult, error) {
	args := []string{
		strconv.Itoa(p.Dim),
		strconv.Itoa(p.Samples),
		strconv.FormatFloat(p.Radius, 'g', -1, 64),
	}
	if s.Seed != nil {
		seed := callSeed(*s.Seed, p, s.calls.Add(1)-1)
		args = append(args, "--seed", strconv.FormatUint(seed, 10))
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.Path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = errors.Wrap(err, msg)
		}
		return sphere.EstimationResult{}, errors.ExternalServiceError("ndsphere", err)
	}

	rep, err := estimator.ParseReport(&stdout)
	if err != nil {
		return sphere.EstimationResult{}, errors.Wrapf(err, "unexpected output from %s", s.Path)
	}
	if rep.Dim != 0 && (rep.Dim != p.Dim || rep.Samples != p.Samples) {
		return sphere.EstimationResult{}, errors.ProtocolMismatch(fmt.Sprintf(
			"%s reported d=%d N=%d for a d=%d N=%d request", s.Path, rep.Dim, rep.Samples, p.Dim, p.Samples))
	}
	res := rep.Result()
	res.Params = p
	return res, nil
}

// callSeed derives the seed of the call-th estimate at p. Repeats at the same
// (d, N) get distinct seeds; the sequence is fixed for a given base seed.
func callSeed(base uint64, p sphere.Params, call uint64) uint64 {
	x := base ^ uint64(p.Dim)<<40 ^ uint64(p.Samples)
	x += (call + 1) * 0x9e3779b97f4a7c15
	// splitmix64 finalizer
	x = (x ^ x>>30) * 0xbf58476d1ce4e5b9
	x = (x ^ x>>27) * 0x94d049bb133111eb
	return x ^ x>>31
}
