// Package quality implements the rule-based check battery that scans a
// snapshot of the healthcare dataset and produces findings.
package quality

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/healthqa-cli/internal/config"
	"github.com/sells-group/healthqa-cli/internal/model"
)

// CheckFunc applies one quality check to a snapshot. Checks are pure:
// they never mutate the snapshot and all time comparisons use evalTime,
// never the wall clock.
type CheckFunc func(snap *model.Snapshot, evalTime time.Time) ([]model.Finding, error)

// Check is a named entry in the check registry.
type Check struct {
	Name model.CheckType
	Fn   CheckFunc
}

// Evaluator runs the full check battery against a snapshot.
type Evaluator struct {
	cfg    config.CheckConfig
	checks []Check
}

// NewEvaluator creates an Evaluator with the full ordered check registry.
func NewEvaluator(cfg config.CheckConfig) *Evaluator {
	e := &Evaluator{cfg: cfg}
	e.checks = []Check{
		{model.CheckCompleteness, e.checkCompleteness},
		{model.CheckFormat, e.checkFormat},
		{model.CheckDiscrepancy, e.checkClaimAmounts},
		{model.CheckTemporal, e.checkTemporal},
		{model.CheckCredential, e.checkCredentials},
		{model.CheckDuplicate, e.checkDuplicates},
		{model.CheckReferential, e.checkReferential},
		{model.CheckThreshold, e.checkThresholds},
		{model.CheckFreshness, e.checkFreshness},
		{model.CheckDocumentation, e.checkDocumentation},
	}
	return e
}

// Checks returns the ordered check registry.
func (e *Evaluator) Checks() []Check {
	return e.checks
}

// RunAll executes every registered check and returns the combined finding
// set plus the number of checks that ran. A check that fails to evaluate
// is reported as a check_execution_error finding and never aborts its
// siblings. When ctx is cancelled no further checks are issued and the
// findings collected so far are returned.
func (e *Evaluator) RunAll(ctx context.Context, snap *model.Snapshot, evalTime time.Time) ([]model.Finding, int) {
	log := zap.L().With(zap.String("component", "quality.evaluator"))

	if e.cfg.Parallelism > 1 {
		return e.runParallel(ctx, snap, evalTime, log)
	}

	var findings []model.Finding
	checksRun := 0
	for _, c := range e.checks {
		if ctx.Err() != nil {
			log.Warn("evaluation cancelled",
				zap.Int("checks_run", checksRun),
				zap.Int("checks_total", len(e.checks)),
			)
			break
		}
		out := e.runCheck(c, snap, evalTime)
		checksRun++
		log.Debug("check complete",
			zap.String("check", string(c.Name)),
			zap.Int("findings", len(out)),
		)
		findings = append(findings, out...)
	}
	return findings, checksRun
}

// runParallel runs checks concurrently. Results are collected per check
// and flattened in registry order so output is identical to a sequential
// run.
func (e *Evaluator) runParallel(ctx context.Context, snap *model.Snapshot, evalTime time.Time, log *zap.Logger) ([]model.Finding, int) {
	results := make([][]model.Finding, len(e.checks))
	ran := make([]bool, len(e.checks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Parallelism)

	for i, c := range e.checks {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			results[i] = e.runCheck(c, snap, evalTime)
			ran[i] = true
			return nil
		})
	}
	_ = g.Wait()

	var findings []model.Finding
	checksRun := 0
	for i := range e.checks {
		if ran[i] {
			checksRun++
			findings = append(findings, results[i]...)
		}
	}
	log.Debug("parallel evaluation complete",
		zap.Int("checks_run", checksRun),
		zap.Int("findings", len(findings)),
	)
	return findings, checksRun
}

// runCheck executes a single check, converting errors and panics into a
// check_execution_error finding.
func (e *Evaluator) runCheck(c Check, snap *model.Snapshot, evalTime time.Time) (out []model.Finding) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("check panicked",
				zap.String("check", string(c.Name)),
				zap.Any("panic", r),
			)
			out = []model.Finding{execErrorFinding(c.Name, evalTime, fmt.Sprintf("panic: %v", r))}
		}
	}()

	findings, err := c.Fn(snap, evalTime)
	if err != nil {
		zap.L().Error("check failed",
			zap.String("check", string(c.Name)),
			zap.Error(err),
		)
		return append(findings, execErrorFinding(c.Name, evalTime, err.Error()))
	}
	return findings
}

func execErrorFinding(check model.CheckType, evalTime time.Time, reason string) model.Finding {
	return model.Finding{
		CheckTimestamp: evalTime,
		CheckType:      check,
		TableName:      "n/a",
		RecordID:       "n/a",
		IssueType:      model.IssueCheckExecutionError,
		Description:    fmt.Sprintf("Check %s could not be evaluated: %s", check, reason),
		Severity:       model.SeverityHigh,
		Status:         model.FindingStatusOpen,
	}
}

// newFinding builds an OPEN finding stamped with the evaluation time.
func newFinding(evalTime time.Time, check model.CheckType, table, recordID string, issue model.IssueType, severity model.Severity, desc string, details map[string]any) model.Finding {
	return model.Finding{
		CheckTimestamp: evalTime,
		CheckType:      check,
		TableName:      table,
		RecordID:       recordID,
		IssueType:      issue,
		Description:    desc,
		Severity:       severity,
		Status:         model.FindingStatusOpen,
		Details:        details,
	}
}

// Round2 rounds to two decimal places, the precision used for reported
// percentages and metric values.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// daysBetween returns the whole number of days from earlier to later.
func daysBetween(earlier, later time.Time) int {
	return int(later.Sub(earlier).Hours() / 24)
}
