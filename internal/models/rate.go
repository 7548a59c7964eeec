package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// KeyRate is a published benchmark rate observation
type KeyRate struct {
	ID        int64           `json:"id"`
	Series    int             `json:"series"`
	Date      time.Time       `json:"date"`
	Rate      decimal.Decimal `json:"rate"` // percent per year, e.g. 10.65
	CreatedAt time.Time       `json:"created_at"`
}

// RateQuote is the annual rate applied to simulations
type RateQuote struct {
	AnnualRate decimal.Decimal `json:"annual_rate"` // fraction
	Source     string          `json:"source"`
	Date       string          `json:"date,omitempty"`
}
