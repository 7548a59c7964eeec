package models

import "github.com/shopspring/decimal"

// SnapshotRecord is the flat interchange form of a simulation run.
// Balances and Dates have the same length, equal to HorizonDays.
type SnapshotRecord struct {
	InitialBalance      decimal.Decimal
	MonthlyContribution decimal.Decimal
	HorizonDays         int
	Balances            []decimal.Decimal
	Dates               []string // Format: YYYY-MM-DD

	// Replay inputs, absent from older files. Zero period means unknown.
	ContributionPeriodDays int
	AnnualRate             decimal.NullDecimal
}
