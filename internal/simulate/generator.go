package simulate

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/frc-emotion/nautilus-backend/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	scoutProfiles      = 4
)

// Constants for metric generation ranges. Scores are modelled on typical
// match scoring fields: piece counts and rating-style values.
const (
	steadyScoutMin    = 4.0
	steadyScoutRange  = 3.0
	optimistMin       = 7.0
	optimistRange     = 3.0
	pessimistMin      = 0.0
	pessimistRange    = 4.0
	erraticMin        = 0.0
	erraticRange      = 10.0
	climbAgreeingBias = 0.75
)

// Constants for scout profile cases.
const (
	caseSteadyScout = 0
	caseOptimist    = 1
	casePessimist   = 2
	caseErratic     = 3
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateReports creates the configured number of reports spread across the
// team/match grid so every pair collects several independent observations.
func generateReports(ctx context.Context, config *Config, stats *Stats) ([]Report, error) {
	logger.Get().Info(ctx, "generating scouting reports",
		logger.Int("numReports", config.NumReports),
		logger.Int("teams", config.Teams),
		logger.Int("matches", config.Matches))

	teamIDs := make([]string, config.Teams)
	for i := range teamIDs {
		teamIDs[i] = "frc" + strconv.Itoa(2000+i)
	}
	matchIDs := make([]string, config.Matches)
	for i := range matchIDs {
		matchIDs[i] = "qm" + strconv.Itoa(i+1)
	}

	reports := make([]Report, config.NumReports)

	type reportResult struct {
		index  int
		report Report
		err    error
	}

	resultChan := make(chan reportResult, config.NumReports)

	// Use worker pool for report generation
	workerCount := minInt(config.Workers, config.NumReports)
	reportsPerWorker := config.NumReports / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * reportsPerWorker
		end := start + reportsPerWorker
		if worker == workerCount-1 {
			end = config.NumReports // Last worker gets remaining reports
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- reportResult{index: i, err: ctx.Err()}
					return
				default:
					// Round-robin over the grid so each pair sees
					// reports from several scouts.
					team := teamIDs[i%len(teamIDs)]
					match := matchIDs[(i/len(teamIDs))%len(matchIDs)]
					resultChan <- reportResult{index: i, report: generateSingleReport(i, team, match)}
				}
			}
		}(start, end)
	}

	// Collect results
	for i := 0; i < config.NumReports; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case result := <-resultChan:
			if result.err != nil {
				return nil, result.err
			}
			reports[result.index] = result.report
		}
	}

	stats.ReportsGenerated = len(reports)
	logger.Get().Info(ctx, "generated reports successfully", logger.Int("count", len(reports)))

	return reports, nil
}

// generateSingleReport creates a single report for the given team and match.
func generateSingleReport(index int, teamID, matchID string) Report {
	scoutID := "scout-" + uuid.New().String()

	return Report{
		ReportID: "report_" + strconv.Itoa(index) + "_" + uuid.New().String(),
		TeamID:   teamID,
		MatchID:  matchID,
		ScoutID:  scoutID,
		Numeric: map[string]float64{
			"auto_pieces":   float64(int(generateVariedMetric())),
			"teleop_pieces": float64(int(generateVariedMetric() * 2)),
			"defense":       generateVariedMetric(),
		},
		Boolean: map[string]bool{
			"climbed": getRandomFloat() < climbAgreeingBias,
		},
		At: time.Now().UTC().Format(time.RFC3339),
	}
}

// generateVariedMetric creates a metric with per-scout bias baked in, so
// aggregates see the disagreement a real scouting crew produces.
func generateVariedMetric() float64 {
	randNum, _ := rand.Int(rand.Reader, big.NewInt(scoutProfiles))
	switch randNum.Int64() {
	case caseSteadyScout:
		// Close to the true value (4.0 - 7.0) - most common
		return steadyScoutMin + getRandomFloat()*steadyScoutRange
	case caseOptimist:
		// Counts generously (7.0 - 10.0)
		return optimistMin + getRandomFloat()*optimistRange
	case casePessimist:
		// Misses pieces (0.0 - 4.0)
		return pessimistMin + getRandomFloat()*pessimistRange
	case caseErratic:
		// Anywhere on the scale (0.0 - 10.0)
		return erraticMin + getRandomFloat()*erraticRange
	default:
		return erraticMin + getRandomFloat()*erraticRange
	}
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
