package simulate

import "time"

// Config holds configuration for the scouting load simulation
type Config struct {
	BaseURL    string        // Base URL of the service
	NumReports int           // Number of reports to generate
	Teams      int           // Number of distinct teams to scout
	Matches    int           // Number of matches per team
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for generated reports
	LogFile    string        // Log file for simulation output
	Verbose    bool          // Enable verbose logging
}

// Report represents a scouting report to be submitted
type Report struct {
	ReportID string             `json:"report_id"`
	TeamID   string             `json:"team_id"`
	MatchID  string             `json:"match_id"`
	ScoutID  string             `json:"scout_id"`
	Numeric  map[string]float64 `json:"numeric"`
	Boolean  map[string]bool    `json:"boolean"`
	At       string             `json:"at"`
}

// Aggregate represents a merged consensus row returned by the service
type Aggregate struct {
	TeamID      string             `json:"team_id"`
	MatchID     string             `json:"match_id"`
	Numeric     map[string]float64 `json:"numeric"`
	Boolean     map[string]bool    `json:"boolean"`
	Agreement   map[string]float64 `json:"agreement"`
	Disputed    bool               `json:"disputed"`
	ReportIDs   []string           `json:"report_ids"`
	ReportCount int                `json:"report_count"`
}

// AckResponse represents the response from report submission
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds simulation statistics
type Stats struct {
	ReportsGenerated     int
	ReportsSubmitted     int
	ReportsSuccessful    int
	ReportsDuplicate     int
	ReportsFailed        int
	AggregatesRetrieved  int
	AggregatesDisputed   int
	AggregatesMismatched int
	StartTime            time.Time
	EndTime              time.Time
	Duration             time.Duration
}
