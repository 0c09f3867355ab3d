// Package scouting reconciles independent scouting reports for one
// (team, match) into a single canonical aggregate.
//
// Merging is always a pure fold over all current reports, never an
// incremental patch: reports are immutable, but late-arriving reports force
// a full recompute, and a fold cannot drift.
package scouting

import (
	"math"
	"sort"
	"time"

	"github.com/frc-emotion/nautilus-backend/internal/domain/model"
)

// Config tunes dispute detection.
type Config struct {
	// DisputeThreshold is the minimum per-field agreement ratio. Any field
	// below it flags the whole aggregate as disputed.
	DisputeThreshold float64

	// NumericTolerance is the absolute tolerance for counting a numeric
	// observation as agreeing with the merged value.
	NumericTolerance float64
}

// Merge folds reports into one aggregate. Numeric fields take the median
// (robust to a single outlier scout); boolean fields take a majority vote
// with ties resolved toward false. All reports must share one (team, match).
func Merge(reports []model.ScoutingReport, cfg Config, now time.Time) (model.ScoutingAggregate, error) {
	if len(reports) == 0 {
		return model.ScoutingAggregate{}, ErrInsufficientReports
	}
	for _, r := range reports[1:] {
		if r.TeamID != reports[0].TeamID || r.MatchID != reports[0].MatchID {
			return model.ScoutingAggregate{}, ErrMixedKeys
		}
	}

	// Submission order determines contributor listing.
	ordered := make([]model.ScoutingReport, len(reports))
	copy(ordered, reports)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SubmittedAt.Before(ordered[j].SubmittedAt)
	})

	agg := model.ScoutingAggregate{
		TeamID:      ordered[0].TeamID,
		MatchID:     ordered[0].MatchID,
		Numeric:     make(map[string]float64),
		Boolean:     make(map[string]bool),
		Agreement:   make(map[string]float64),
		ReportIDs:   make([]string, 0, len(ordered)),
		ReportCount: len(ordered),
		ComputedAt:  now,
	}
	for _, r := range ordered {
		agg.ReportIDs = append(agg.ReportIDs, r.ID)
	}

	mergeNumeric(&agg, ordered, cfg)
	mergeBoolean(&agg, ordered)

	for _, ratio := range agg.Agreement {
		if ratio < cfg.DisputeThreshold {
			agg.Disputed = true
			break
		}
	}
	return agg, nil
}

func mergeNumeric(agg *model.ScoutingAggregate, reports []model.ScoutingReport, cfg Config) {
	for _, field := range numericFields(reports) {
		var values []float64
		for _, r := range reports {
			if v, ok := r.Numeric[field]; ok {
				values = append(values, v)
			}
		}
		m := median(values)
		agg.Numeric[field] = m

		matching := 0
		for _, v := range values {
			if math.Abs(v-m) <= cfg.NumericTolerance {
				matching++
			}
		}
		agg.Agreement[field] = float64(matching) / float64(len(values))
	}
}

func mergeBoolean(agg *model.ScoutingAggregate, reports []model.ScoutingReport) {
	for _, field := range booleanFields(reports) {
		var votes, trues int
		for _, r := range reports {
			if v, ok := r.Boolean[field]; ok {
				votes++
				if v {
					trues++
				}
			}
		}
		// Majority vote; a tie resolves to false as the conservative default.
		value := trues*2 > votes
		agg.Boolean[field] = value

		matching := trues
		if !value {
			matching = votes - trues
		}
		agg.Agreement[field] = float64(matching) / float64(votes)
	}
}

// median returns the middle value (mean of the two middles for even counts).
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func numericFields(reports []model.ScoutingReport) []string {
	seen := make(map[string]struct{})
	var fields []string
	for _, r := range reports {
		for f := range r.Numeric {
			if _, ok := seen[f]; !ok {
				seen[f] = struct{}{}
				fields = append(fields, f)
			}
		}
	}
	sort.Strings(fields)
	return fields
}

func booleanFields(reports []model.ScoutingReport) []string {
	seen := make(map[string]struct{})
	var fields []string
	for _, r := range reports {
		for f := range r.Boolean {
			if _, ok := seen[f]; !ok {
				seen[f] = struct{}{}
				fields = append(fields, f)
			}
		}
	}
	sort.Strings(fields)
	return fields
}
