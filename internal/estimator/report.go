package estimator

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ndsphere/domain/sphere"
	"ndsphere/internal/errors"
)

// Labels of the line-oriented report. LabelRelError and LabelStdErr are the
// two that external tooling parses.
const (
	LabelRadius   = "(r)"
	LabelDimN     = "(d,N)"
	LabelVolume   = "volume"
	LabelStdErr   = "stat uncertainty"
	LabelRelError = "relative error"
)

// Report is the parsed form of the text report.
type Report struct {
	Radius   float64
	Dim      int
	Samples  int
	Volume   float64
	StdErr   float64
	RelError float64
}

// WriteReport prints res as "<label>: <value>" lines, one quantity per line.
func WriteReport(w io.Writer, res sphere.EstimationResult) error {
	lines := []string{
		fmt.Sprintf("%s: %s", LabelRadius, formatFloat(res.Params.Radius)),
		fmt.Sprintf("%s: %d %d", LabelDimN, res.Params.Dim, res.Params.Samples),
		fmt.Sprintf("%s: %s", LabelVolume, formatFloat(res.Volume)),
		fmt.Sprintf("%s: %s", LabelStdErr, formatFloat(res.StdErr)),
		fmt.Sprintf("%s: %s", LabelRelError, formatFloat(res.RelError)),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return errors.Wrap(err, "failed to write report")
		}
	}
	return nil
}

// ParseReport reads a report produced by WriteReport. Unknown lines are
// ignored; the relative error and stat uncertainty lines are required.
func ParseReport(r io.Reader) (Report, error) {
	var rep Report
	var haveRel, haveStd bool

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		var err error
		switch label {
		case LabelRadius:
			rep.Radius, err = strconv.ParseFloat(value, 64)
		case LabelDimN:
			_, err = fmt.Sscanf(value, "%d %d", &rep.Dim, &rep.Samples)
		case LabelVolume:
			rep.Volume, err = strconv.ParseFloat(value, 64)
		case LabelStdErr:
			rep.StdErr, err = strconv.ParseFloat(value, 64)
			haveStd = err == nil
		case LabelRelError:
			rep.RelError, err = strconv.ParseFloat(value, 64)
			haveRel = err == nil
		}
		if err != nil {
			return Report{}, errors.WithCode(errors.CodeProtocolMismatch,
				errors.Wrapf(err, "malformed %q line", label))
		}
	}
	if err := scanner.Err(); err != nil {
		return Report{}, errors.Wrap(err, "failed to read report")
	}

	if !haveRel {
		return Report{}, errors.Newf(errors.CodeProtocolMismatch, "report has no %q line", LabelRelError)
	}
	if !haveStd {
		return Report{}, errors.Newf(errors.CodeProtocolMismatch, "report has no %q line", LabelStdErr)
	}
	return rep, nil
}

// Result converts a parsed report back into an EstimationResult. Hits is
// recovered from the volume; TrueVolume is recomputed.
func (rep Report) Result() sphere.EstimationResult {
	p := sphere.Params{Dim: rep.Dim, Samples: rep.Samples, Radius: rep.Radius}
	res := sphere.EstimationResult{
		Params:   p,
		Volume:   rep.Volume,
		StdErr:   rep.StdErr,
		RelError: rep.RelError,
	}
	if p.Dim >= 1 && p.Radius > 0 {
		res.TrueVolume = TrueVolume(p.Dim, p.Radius)
		if cube := CubeVolume(p.Dim, p.Radius); isNormal(cube) {
			res.Hits = sphere.HitCount(rep.Volume/cube*float64(p.Samples) + 0.5)
		}
	}
	return res
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
