package models

import "github.com/shopspring/decimal"

// SimulationRequest is the untrusted simulation input of the API.
// Nil fields fall back to configured defaults.
type SimulationRequest struct {
	InitialBalance         *decimal.Decimal `json:"initial_balance"`
	MonthlyContribution    *decimal.Decimal `json:"monthly_contribution"`
	HorizonDays            *int             `json:"horizon_days"`
	ContributionPeriodDays *int             `json:"contribution_period_days"`
	StartDate              string           `json:"start_date"` // Format: YYYY-MM-DD
}

// BalancePoint is one point of the balance chart
type BalancePoint struct {
	Date    string `json:"date"` // Format: YYYY-MM-DD
	Balance string `json:"balance"`
}

// SimulationResponse is returned by the simulation endpoint
type SimulationResponse struct {
	InitialBalance        string         `json:"initial_balance"`
	MonthlyContribution   string         `json:"monthly_contribution"`
	HorizonDays           int            `json:"horizon_days"`
	AnnualRate            string         `json:"annual_rate"`
	Entries               []BalancePoint `json:"entries"`
	FinalBalance          string         `json:"final_balance"`
	FormattedFinalBalance string         `json:"formatted_final_balance"`
	Summary               string         `json:"summary"`
}

// SnapshotResponse is the decoded view of an imported snapshot
type SnapshotResponse struct {
	InitialBalance         string         `json:"initial_balance"`
	MonthlyContribution    string         `json:"monthly_contribution"`
	HorizonDays            int            `json:"horizon_days"`
	ContributionPeriodDays int            `json:"contribution_period_days,omitempty"`
	AnnualRate             string         `json:"annual_rate,omitempty"`
	Entries                []BalancePoint `json:"entries"`
	Verified               bool           `json:"verified"`
}

// LoginRequest carries the admin credentials
type LoginRequest struct {
	Password string `json:"password"`
}

// EmailExportRequest asks for a snapshot to be mailed
type EmailExportRequest struct {
	To         string            `json:"to"`
	Simulation SimulationRequest `json:"simulation"`
}

// ErrorResponse is the JSON body of a failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
}
