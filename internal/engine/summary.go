package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/gantry-dev/gantry/internal/build"
	"github.com/gantry-dev/gantry/pkg/logger"
	"github.com/gantry-dev/gantry/pkg/model"
)

type TargetStatus string

const (
	// StatusFresh means the cache already held a matching result; nothing
	// ran for this target.
	StatusFresh TargetStatus = "fresh"

	StatusBuilt   TargetStatus = "built"
	StatusApplied TargetStatus = "applied"
	StatusDeleted TargetStatus = "deleted"

	// StatusSkipped means an upstream target failed, so this one never
	// ran. The root cause is in Because.
	StatusSkipped TargetStatus = "skipped"

	StatusFailed TargetStatus = "failed"
)

type TargetResult struct {
	ID     model.TargetID
	Status TargetStatus

	// Ref is the content-addressed image ref, for image targets that
	// built or reused a result.
	Ref string

	// Err is set for StatusFailed: a build.BuildFailure, an ApplyError,
	// or a bind error.
	Err error

	// Because names the failed target that caused a skip.
	Because model.TargetID

	Duration time.Duration
}

// RunSummary collects per-target outcomes for one run. Failures are
// gathered here rather than aborting the run, so independent subgraphs
// finish and the user sees everything that went wrong at once.
type RunSummary struct {
	RunID   string
	order   []model.TargetID
	results map[model.TargetID]TargetResult
}

func newRunSummary(runID string) *RunSummary {
	return &RunSummary{
		RunID:   runID,
		results: make(map[model.TargetID]TargetResult),
	}
}

func (s *RunSummary) set(result TargetResult) {
	if _, ok := s.results[result.ID]; !ok {
		s.order = append(s.order, result.ID)
	}
	s.results[result.ID] = result
}

func (s *RunSummary) Result(id model.TargetID) (TargetResult, bool) {
	result, ok := s.results[id]
	return result, ok
}

// Results returns every recorded outcome in resolver order.
func (s *RunSummary) Results() []TargetResult {
	out := make([]TargetResult, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.results[id])
	}
	return out
}

func (s *RunSummary) withStatus(status TargetStatus) []TargetResult {
	var out []TargetResult
	for _, result := range s.Results() {
		if result.Status == status {
			out = append(out, result)
		}
	}
	return out
}

func (s *RunSummary) Failed() []TargetResult  { return s.withStatus(StatusFailed) }
func (s *RunSummary) Skipped() []TargetResult { return s.withStatus(StatusSkipped) }

func (s *RunSummary) Ok() bool { return len(s.Failed()) == 0 }

// HasBuildFailures reports whether any failure came from an image build.
func (s *RunSummary) HasBuildFailures() bool {
	for _, result := range s.Failed() {
		var bf build.BuildFailure
		if errors.As(result.Err, &bf) {
			return true
		}
	}
	return false
}

// HasApplyFailures reports whether any failure came from a cluster apply.
func (s *RunSummary) HasApplyFailures() bool {
	for _, result := range s.Failed() {
		var ae ApplyError
		if errors.As(result.Err, &ae) {
			return true
		}
	}
	return false
}

// Print writes the human-readable run report: one line per target, then
// the error detail for each failure.
func (s *RunSummary) Print(l logger.Logger) {
	if len(s.order) == 0 {
		l.Infof("Nothing to do: all targets up to date.")
		return
	}

	green := logger.Green(l)
	yellow := logger.Yellow(l)
	red := logger.Red(l)

	l.Infof("")
	for _, result := range s.Results() {
		switch result.Status {
		case StatusFailed:
			l.Infof("%s %s (%v)", red.Sprintf("✗ %-8s", result.Status), result.ID, result.Err)
		case StatusSkipped:
			l.Infof("%s %s (upstream %s failed)", yellow.Sprintf("- %-8s", result.Status), result.ID, result.Because)
		case StatusFresh:
			l.Infof("%s %s%s", green.Sprintf("✓ %-8s", result.Status), result.ID, refSuffix(result))
		default:
			l.Infof("%s %s%s [%s]", green.Sprintf("✓ %-8s", result.Status), result.ID, refSuffix(result),
				result.Duration.Truncate(time.Millisecond))
		}
	}

	if failed := s.Failed(); len(failed) > 0 {
		l.Infof("")
		l.Errorf("%d target(s) failed:", len(failed))
		for _, result := range failed {
			l.Errorf("  %s: %v", result.ID, result.Err)
		}
	}
}

func refSuffix(result TargetResult) string {
	if result.Ref == "" {
		return ""
	}
	return fmt.Sprintf(" -> %s", result.Ref)
}
