package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// roleHeader mirrors the header the service uses for role screening. The
// simulator always acts as an ordinary member.
const (
	roleHeader = "X-Role"
	roleMember = "member"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request with the member role header
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(roleHeader, roleMember)
	return c.client.Do(req)
}

// Post performs a POST request with JSON body and the member role header
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(roleHeader, roleMember)
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitReports submits reports concurrently using worker pools
func submitReports(ctx context.Context, config *Config, reports []Report, stats *Stats) error {
	log.Printf("submitting %d reports with %d workers", len(reports), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/scouting/reports"

	// Counters for statistics
	var (
		successful int64
		duplicate  int64
		failed     int64
		submitted  int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	reportChan := make(chan Report, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for report := range reportChan {
				select {
				case <-ctx.Done():
					return
				default:
					result := submitSingleReport(ctx, client, url, report)

					// Update counters
					atomic.AddInt64(&submitted, 1)
					switch result {
					case "success":
						atomic.AddInt64(&successful, 1)
					case "duplicate":
						atomic.AddInt64(&duplicate, 1)
					case "failed":
						atomic.AddInt64(&failed, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&submitted)
						succ := atomic.LoadInt64(&successful)
						dup := atomic.LoadInt64(&duplicate)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("progress: %d/%d submitted (success: %d, duplicate: %d, failed: %d)",
								total, len(reports), succ, dup, fail)
						} else {
							fmt.Printf("\rsubmitted: %d/%d (success: %d, duplicate: %d, failed: %d)",
								total, len(reports), succ, dup, fail)
						}
					}
				}
			}
		}()
	}

	// Send reports to workers
	go func() {
		defer close(reportChan)
		for _, report := range reports {
			select {
			case <-ctx.Done():
				return
			case reportChan <- report:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	// Update stats
	stats.ReportsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.ReportsSuccessful = int(atomic.LoadInt64(&successful))
	stats.ReportsDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.ReportsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`report submission completed:
   Successful: %d
   Duplicate: %d
   Failed: %d
`, stats.ReportsSuccessful, stats.ReportsDuplicate, stats.ReportsFailed)

	return nil
}

// submitSingleReport submits a single report and returns the result
func submitSingleReport(ctx context.Context, client *HTTPClient, url string, report Report) string {
	resp, err := client.Post(ctx, url, report)
	if err != nil {
		return "failed"
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	// Parse response based on status code
	switch resp.StatusCode {
	case StatusAccepted:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err == nil && ack.Status == "accepted" {
			return "success"
		}
		return "success" // Assume success for 202 even if parsing fails
	case StatusOK:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err == nil && ack.Duplicate {
			return "duplicate"
		}
		return "duplicate" // Assume duplicate for 200 even if parsing fails
	default:
		return "failed"
	}
}

// retrieveAggregates fetches the merged aggregate for every team/match pair
// that received at least one report.
func retrieveAggregates(ctx context.Context, config *Config, reports []Report, stats *Stats) ([]Aggregate, error) {
	pairs := make(map[[2]string]struct{})
	for _, r := range reports {
		pairs[[2]string{r.TeamID, r.MatchID}] = struct{}{}
	}

	log.Printf("retrieving aggregates for %d team/match pairs", len(pairs))

	client := newHTTPClient(config.Timeout)

	type aggResult struct {
		agg Aggregate
		err error
	}

	pairChan := make(chan [2]string, config.Workers*WorkerChannelMultiplier)
	resultChan := make(chan aggResult, len(pairs))
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pair := range pairChan {
				agg, err := fetchAggregate(ctx, client, config.BaseURL, pair[0], pair[1])
				resultChan <- aggResult{agg: agg, err: err}
			}
		}()
	}

	go func() {
		defer close(pairChan)
		for pair := range pairs {
			select {
			case <-ctx.Done():
				return
			case pairChan <- pair:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var aggregates []Aggregate
	var failures int
	for result := range resultChan {
		if result.err != nil {
			failures++
			if config.Verbose {
				log.Printf("aggregate fetch failed: %v", result.err)
			}
			continue
		}
		aggregates = append(aggregates, result.agg)
	}

	stats.AggregatesRetrieved = len(aggregates)
	log.Printf("retrieved %d aggregates (%d failures)", len(aggregates), failures)

	return aggregates, nil
}

// fetchAggregate retrieves a single team/match aggregate.
func fetchAggregate(ctx context.Context, client *HTTPClient, baseURL, teamID, matchID string) (Aggregate, error) {
	url := baseURL + "/scouting/aggregate/" + teamID + "/" + matchID

	resp, err := client.Get(ctx, url)
	if err != nil {
		return Aggregate{}, fmt.Errorf("failed to fetch aggregate for %s/%s: %w", teamID, matchID, err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return Aggregate{}, fmt.Errorf("failed to read aggregate response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return Aggregate{}, fmt.Errorf("aggregate request for %s/%s returned status %d", teamID, matchID, resp.StatusCode)
	}

	var agg Aggregate
	if err := json.Unmarshal(body, &agg); err != nil {
		return Aggregate{}, fmt.Errorf("failed to parse aggregate response: %w", err)
	}

	return agg, nil
}
