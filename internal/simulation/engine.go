package simulation

import (
	"fmt"
	"time"

	"github.com/Dan9191/cofrinho-service/internal/models"
	"github.com/shopspring/decimal"
)

const (
	// DaysPerYear converts the annual rate into the daily yield.
	DaysPerYear = 365
	// DefaultContributionPeriodDays approximates a month.
	DefaultContributionPeriodDays = 30
	// DateLayout is the canonical calendar date form.
	DateLayout = "2006-01-02"

	// AmountPrecision is the number of fractional digits of money amounts.
	AmountPrecision = 2
	// RatePrecision bounds the fractional digits of the annual rate.
	RatePrecision = 16

	carryPrecision = 10

	// maxSpanDays keeps every series date inside years 1..9999.
	maxSpanDays = 10000 * 366
)

var (
	// DefaultAnnualRate is 100% of the CDI reference (10.65% a.a.).
	DefaultAnnualRate = decimal.RequireFromString("0.1065")

	// MaxBalance bounds amounts and the carried balance.
	MaxBalance = decimal.New(1, 13)

	// MaxAnnualRate bounds the annual rate fraction (1000% a year).
	MaxAnnualRate = decimal.NewFromInt(10)
)

// Option customizes parameters built by NewParameters
type Option func(*models.SimulationParameters)

// WithAnnualRate overrides the annual rate fraction
func WithAnnualRate(rate decimal.Decimal) Option {
	return func(p *models.SimulationParameters) { p.AnnualRate = rate }
}

// WithContributionPeriod overrides the contribution interval in days
func WithContributionPeriod(days int) Option {
	return func(p *models.SimulationParameters) { p.ContributionPeriodDays = days }
}

// WithStartDate anchors the series at the given date
func WithStartDate(date time.Time) Option {
	return func(p *models.SimulationParameters) { p.StartDate = date }
}

// NewParameters builds parameters with the domain defaults applied.
// The start date defaults to today, read once here.
func NewParameters(initial, contribution decimal.Decimal, horizonDays int, opts ...Option) models.SimulationParameters {
	p := models.SimulationParameters{
		InitialBalance:         initial,
		MonthlyContribution:    contribution,
		HorizonDays:            horizonDays,
		AnnualRate:             DefaultAnnualRate,
		ContributionPeriodDays: DefaultContributionPeriodDays,
		StartDate:              time.Now(),
	}
	for _, opt := range opts {
		opt(&p)
	}
	p.StartDate = TruncateDate(p.StartDate)
	return p
}

// TruncateDate drops the clock part of t, keeping its calendar date.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Validate checks the simulation preconditions. Amounts above MaxBalance
// fail with ErrNumericOverflow, everything else with a *ParamError.
func Validate(p models.SimulationParameters) error {
	if err := validateAmount("initial_balance", p.InitialBalance); err != nil {
		return err
	}
	if err := validateAmount("monthly_contribution", p.MonthlyContribution); err != nil {
		return err
	}

	switch {
	case p.HorizonDays < 1:
		return invalid("horizon_days", "must be at least 1")
	case p.HorizonDays > maxSpanDays:
		return invalid("horizon_days", "exceeds the calendar range")
	case p.ContributionPeriodDays < 1:
		return invalid("contribution_period_days", "must be at least 1")
	case p.AnnualRate.IsNegative():
		return invalid("annual_rate", "must not be negative")
	case !FitsScale(p.AnnualRate, RatePrecision) || !WithinMagnitude(p.AnnualRate, MaxAnnualRate):
		return invalid("annual_rate", fmt.Sprintf("must be at most %s with %d fractional digits", MaxAnnualRate, RatePrecision))
	case p.StartDate.IsZero():
		return invalid("start_date", "is required")
	}

	start := TruncateDate(p.StartDate)
	if start.Year() < 1 || start.AddDate(0, 0, p.HorizonDays).Year() > 9999 {
		return invalid("start_date", "series must stay within years 1 to 9999")
	}
	return nil
}

func validateAmount(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return invalid(field, "must not be negative")
	}
	if !FitsScale(d, AmountPrecision) {
		return invalid(field, "must have at most 2 fractional digits")
	}
	if !WithinMagnitude(d, MaxBalance) {
		return fmt.Errorf("%w: %s exceeds %s", ErrNumericOverflow, field, MaxBalance)
	}
	return nil
}

// DailyRate returns annual / 365 held to 16 fractional digits.
func DailyRate(annual decimal.Decimal) decimal.Decimal {
	return annual.DivRound(decimal.NewFromInt(DaysPerYear), RatePrecision)
}

// Simulate computes the day-by-day balance trajectory.
//
// Each day compounds first and then, on multiples of the contribution
// period, adds the contribution. The next day compounds on the carried
// balance (10 fractional digits); only stored entries are rounded to cents.
func Simulate(p models.SimulationParameters) (*models.SimulationResult, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}

	dailyRate := DailyRate(p.AnnualRate)
	start := TruncateDate(p.StartDate)
	balance := Canonical(p.InitialBalance, AmountPrecision)
	contribution := Canonical(p.MonthlyContribution, AmountPrecision)
	entries := make([]models.DailyBalance, 0, p.HorizonDays)

	for day := 1; day <= p.HorizonDays; day++ {
		balance = balance.Add(balance.Mul(dailyRate)).Round(carryPrecision)
		if day%p.ContributionPeriodDays == 0 {
			balance = balance.Add(contribution).Round(carryPrecision)
		}
		if balance.GreaterThan(MaxBalance) {
			return nil, fmt.Errorf("%w: balance exceeds %s on day %d", ErrNumericOverflow, MaxBalance, day)
		}
		entries = append(entries, models.DailyBalance{
			Date:    start.AddDate(0, 0, day),
			Balance: balance.Round(AmountPrecision),
		})
	}

	return &models.SimulationResult{Entries: entries}, nil
}
