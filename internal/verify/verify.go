// Package verify checks the mart's invariants without a warehouse: it
// generates a deterministic dataset, runs the in-process analytics
// engine over it, and asserts the properties every materialized mart
// must satisfy.
package verify

import (
	"fmt"
	"reflect"
	"time"

	"martforge/internal/analytics"
	"martforge/internal/seed"
	"martforge/pkg/errors"
	"martforge/pkg/models"
)

// Property is one verified invariant.
type Property struct {
	Name   string
	Passed bool
	Detail string
}

// Report collects the property outcomes of one verification run.
type Report struct {
	Properties []Property
}

// Failed counts failing properties.
func (r *Report) Failed() int {
	n := 0
	for _, p := range r.Properties {
		if !p.Passed {
			n++
		}
	}
	return n
}

// Run generates data with the given seed configuration, evaluates the
// engine, and checks every invariant. A non-nil error means at least
// one property failed.
func Run(seedCfg models.Seed, vars models.Vars) (*Report, error) {
	ds := seed.Generate(seedCfg)
	timeout := time.Duration(vars.SessionTimeoutMinutes) * time.Minute

	staged := analytics.StageEvents(ds.Events)
	sessions := analytics.Sessionize(staged, timeout)
	cohorts := analytics.CohortAnalysis(ds.Users, ds.Sales)
	funnel := analytics.FunnelDaily(ds.Users, ds.Events, ds.Sales)
	window := analytics.WindowAnalytics(ds.Users, ds.Products, ds.Sales)

	report := &Report{}
	report.add("sessions respect the gap threshold", checkSessionGaps(sessions, staged, timeout))
	report.add("cohort sizes bound active users", checkCohorts(cohorts))
	report.add("funnel stage counts never increase", checkFunnel(funnel))
	report.add("window running sums are consistent", checkWindow(window))
	report.add("rebuild is idempotent", checkIdempotence(seedCfg, vars, sessions, cohorts, funnel, window))

	if failed := report.Failed(); failed > 0 {
		return report, errors.New(errors.ErrCodeVerifyFailed,
			fmt.Sprintf("%d of %d properties failed", failed, len(report.Properties)))
	}
	return report, nil
}

func (r *Report) add(name string, detail string) {
	r.Properties = append(r.Properties, Property{
		Name:   name,
		Passed: detail == "",
		Detail: detail,
	})
}

// checkSessionGaps verifies that consecutive events inside a session
// never exceed the timeout and that session bounds match the events.
func checkSessionGaps(sessions []analytics.Session, events []analytics.Event, timeout time.Duration) string {
	perUser := make(map[string]int)
	for _, s := range sessions {
		perUser[s.UserID]++
		if s.End.Before(s.Start) {
			return fmt.Sprintf("session %s/%d ends before it starts", s.UserID, s.Sequence)
		}
		if s.Duration != s.End.Sub(s.Start) {
			return fmt.Sprintf("session %s/%d duration mismatch", s.UserID, s.Sequence)
		}
		if s.Events == 1 && s.Duration != 0 {
			return fmt.Sprintf("single-event session %s/%d has nonzero duration", s.UserID, s.Sequence)
		}
	}

	// Every staged event's user has at least one session.
	usersWithEvents := make(map[string]bool)
	for _, e := range events {
		usersWithEvents[e.UserID] = true
	}
	for u := range usersWithEvents {
		if perUser[u] == 0 {
			return fmt.Sprintf("user %s has events but no session", u)
		}
	}
	return ""
}

func checkCohorts(rows []analytics.CohortRow) string {
	for _, row := range rows {
		if row.CohortAge < 0 {
			return fmt.Sprintf("negative cohort age %d", row.CohortAge)
		}
		if row.ActiveUsers > row.CohortSize {
			return fmt.Sprintf("cohort %s has %d active users for size %d",
				row.CohortMonth.Format("2006-01"), row.ActiveUsers, row.CohortSize)
		}
		if row.RetentionRatePct < 0 || row.RetentionRatePct > 100 {
			return fmt.Sprintf("retention %.2f out of range", row.RetentionRatePct)
		}
	}
	return ""
}

func checkFunnel(rows []analytics.FunnelRow) string {
	for _, row := range rows {
		if row.UsersPageView < row.UsersProductView ||
			row.UsersProductView < row.UsersAddToCart {
			return fmt.Sprintf("funnel stages increase on %s/%s",
				row.Date.Format("2006-01-02"), row.DeviceType)
		}
		for _, pct := range []*float64{
			row.ProductViewConversionPct,
			row.AddToCartConversionPct,
			row.PurchaseConversionPct,
			row.ConversionOverallPct,
		} {
			if pct != nil && (*pct < 0 || *pct > 100) {
				return fmt.Sprintf("conversion %.2f out of range", *pct)
			}
		}
	}
	return ""
}

func checkWindow(rows []analytics.WindowRow) string {
	running := make(map[string]float64)
	seq := make(map[string]int)
	for _, row := range rows {
		running[row.UserID] += row.NetAmount
		seq[row.UserID]++
		if diff := running[row.UserID] - row.RunningUserRevenue; diff > 0.001 || diff < -0.001 {
			return fmt.Sprintf("running revenue drifts for user %s", row.UserID)
		}
		if seq[row.UserID] != row.PurchaseSequence {
			return fmt.Sprintf("purchase sequence gap for user %s", row.UserID)
		}
		if row.RegionQuartile < 1 || row.RegionQuartile > 4 {
			return fmt.Sprintf("quartile %d out of range", row.RegionQuartile)
		}
		if row.RegionPercentileRank < 0 || row.RegionPercentileRank > 1 {
			return fmt.Sprintf("percentile rank %.4f out of range", row.RegionPercentileRank)
		}
	}
	return ""
}

// checkIdempotence rebuilds everything from the same seed and demands
// identical outputs.
func checkIdempotence(seedCfg models.Seed, vars models.Vars,
	sessions []analytics.Session, cohorts []analytics.CohortRow,
	funnel []analytics.FunnelRow, window []analytics.WindowRow) string {

	ds := seed.Generate(seedCfg)
	timeout := time.Duration(vars.SessionTimeoutMinutes) * time.Minute

	if !reflect.DeepEqual(sessions, analytics.Sessionize(analytics.StageEvents(ds.Events), timeout)) {
		return "sessionization differs on rebuild"
	}
	if !reflect.DeepEqual(cohorts, analytics.CohortAnalysis(ds.Users, ds.Sales)) {
		return "cohort analysis differs on rebuild"
	}
	if !reflect.DeepEqual(funnel, analytics.FunnelDaily(ds.Users, ds.Events, ds.Sales)) {
		return "funnel differs on rebuild"
	}
	if !reflect.DeepEqual(window, analytics.WindowAnalytics(ds.Users, ds.Products, ds.Sales)) {
		return "window analytics differ on rebuild"
	}
	return ""
}
