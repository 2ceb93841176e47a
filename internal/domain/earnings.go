package domain

import "time"

type EarningsStatus string

const (
	EarningsUpcoming EarningsStatus = "Upcoming"
	EarningsReported EarningsStatus = "Reported"
)

// EarningsEvent is one row of the earnings calendar. EPS and revenue figures
// are kept as vendor strings; providers disagree on units and precision.
type EarningsEvent struct {
	Ticker           string
	Company          string
	Sector           string
	Date             time.Time
	Quarter          string
	ConsensusEPS     string
	ActualEPS        *string
	ConsensusRevenue string
	ActualRevenue    *string
	Status           EarningsStatus
	BeatMiss         *string
}
