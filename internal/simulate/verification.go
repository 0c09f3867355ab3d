package simulate

import (
	"fmt"
	"log"
	"sort"
)

// verifyResults checks that retrieved aggregates are internally consistent
// with the reports the simulator submitted.
func verifyResults(config *Config, reports []Report, aggregates []Aggregate, stats *Stats) error {
	log.Println("verifying aggregates...")

	if len(aggregates) == 0 {
		return fmt.Errorf("no aggregates to verify")
	}

	// Count submitted reports per pair for the count check.
	counts := make(map[[2]string]int)
	for _, r := range reports {
		counts[[2]string{r.TeamID, r.MatchID}]++
	}

	var mismatched, disputed int
	for _, agg := range aggregates {
		if agg.Disputed {
			disputed++
		}
		if err := verifyAggregate(agg, counts[[2]string{agg.TeamID, agg.MatchID}]); err != nil {
			mismatched++
			log.Printf("aggregate inconsistency for %s/%s: %v", agg.TeamID, agg.MatchID, err)
		}
	}

	stats.AggregatesDisputed = disputed
	stats.AggregatesMismatched = mismatched

	displayMostDisputed(aggregates, config.Verbose)

	if mismatched > 0 {
		return fmt.Errorf("%d of %d aggregates failed verification", mismatched, len(aggregates))
	}

	log.Printf("verification completed: %d aggregates consistent, %d disputed", len(aggregates), disputed)
	return nil
}

// verifyAggregate checks a single aggregate against the number of reports the
// simulator sent for its pair.
func verifyAggregate(agg Aggregate, submitted int) error {
	if agg.ReportCount != submitted {
		return fmt.Errorf("report count %d does not match %d submitted", agg.ReportCount, submitted)
	}
	if len(agg.ReportIDs) != agg.ReportCount {
		return fmt.Errorf("report ID list length %d does not match report count %d", len(agg.ReportIDs), agg.ReportCount)
	}
	for field, ratio := range agg.Agreement {
		if ratio < 0 || ratio > 1 {
			return fmt.Errorf("agreement ratio for %q out of range: %f", field, ratio)
		}
	}
	return nil
}

// displayMostDisputed lists the pairs whose scouts disagreed the most.
func displayMostDisputed(aggregates []Aggregate, verbose bool) {
	sorted := make([]Aggregate, len(aggregates))
	copy(sorted, aggregates)
	sort.Slice(sorted, func(i, j int) bool {
		return minAgreement(sorted[i]) < minAgreement(sorted[j])
	})

	topN := 10
	if len(sorted) < topN {
		topN = len(sorted)
	}

	log.Printf("%d pairs with the least scout agreement:", topN)
	for i := 0; i < topN; i++ {
		agg := sorted[i]
		log.Printf("   %d. %s/%s - min agreement: %.3f disputed: %v", i+1, agg.TeamID, agg.MatchID, minAgreement(agg), agg.Disputed)
	}

	if verbose {
		var sum float64
		for _, agg := range aggregates {
			sum += minAgreement(agg)
		}
		log.Printf("average min-agreement across %d pairs: %.3f", len(aggregates), sum/float64(len(aggregates)))
	}
}

// minAgreement returns the lowest per-field agreement ratio in an aggregate.
func minAgreement(agg Aggregate) float64 {
	min := 1.0
	for _, ratio := range agg.Agreement {
		if ratio < min {
			min = ratio
		}
	}
	return min
}
