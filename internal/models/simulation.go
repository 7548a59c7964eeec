package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SimulationParameters holds the inputs of one simulation run
type SimulationParameters struct {
	InitialBalance         decimal.Decimal
	MonthlyContribution    decimal.Decimal
	HorizonDays            int
	AnnualRate             decimal.Decimal // fraction, e.g. 0.1065
	ContributionPeriodDays int
	StartDate              time.Time
}

// DailyBalance represents the balance at the end of a simulated day
type DailyBalance struct {
	Date    time.Time
	Balance decimal.Decimal // rounded to 2 places
}

// SimulationResult represents the balance trajectory of a run
type SimulationResult struct {
	Entries []DailyBalance
}

// FinalBalance returns the balance of the last simulated day
func (r *SimulationResult) FinalBalance() decimal.Decimal {
	if r == nil || len(r.Entries) == 0 {
		return decimal.Zero
	}
	return r.Entries[len(r.Entries)-1].Balance
}
