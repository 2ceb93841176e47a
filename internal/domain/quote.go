package domain

import "time"

// Quote is one ticker's latest snapshot. At most one live row exists per
// ticker; a refresh overwrites in place rather than appending.
type Quote struct {
	Ticker        string
	Price         float64
	Change        float64
	ChangePercent float64
	Volume        int64
	PreviousClose float64
	Source        string
	UpdatedAt     time.Time
}
