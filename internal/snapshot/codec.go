// Package snapshot converts simulation runs to and from the exported
// JSON file. Field names follow the files produced by earlier versions
// of the simulator.
package snapshot

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/Dan9191/cofrinho-service/internal/models"
	"github.com/Dan9191/cofrinho-service/internal/simulation"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

var maxInt32 = decimal.NewFromInt(math.MaxInt32)

const (
	fieldInitialBalance      = "valor_inicial"
	fieldMonthlyContribution = "aporte_mensal"
	fieldHorizonDays         = "dias"
	fieldBalances            = "resultados"
	fieldDates               = "datas"

	// optional, absent from files written by earlier versions
	fieldContributionPeriod = "periodo_aporte_dias"
	fieldAnnualRate         = "taxa_anual"
)

// amount marshals as a JSON number with exactly two fractional digits.
type amount decimal.Decimal

func (a amount) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(a).StringFixed(2)), nil
}

// rate marshals as an unquoted JSON number without trailing zeros.
type rate decimal.Decimal

func (r rate) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(r).String()), nil
}

type wireRecord struct {
	InitialBalance         amount   `json:"valor_inicial"`
	MonthlyContribution    amount   `json:"aporte_mensal"`
	HorizonDays            int      `json:"dias"`
	Balances               []amount `json:"resultados"`
	Dates                  []string `json:"datas"`
	ContributionPeriodDays int      `json:"periodo_aporte_dias,omitempty"`
	AnnualRate             *rate    `json:"taxa_anual,omitempty"`
}

// ToSnapshot projects a run into its interchange record. The contribution
// period and annual rate travel with the record so it can be replayed.
func ToSnapshot(params models.SimulationParameters, result *models.SimulationResult) models.SnapshotRecord {
	rec := models.SnapshotRecord{
		InitialBalance:         params.InitialBalance.Round(2),
		MonthlyContribution:    params.MonthlyContribution.Round(2),
		HorizonDays:            params.HorizonDays,
		ContributionPeriodDays: params.ContributionPeriodDays,
		AnnualRate:             decimal.NewNullDecimal(params.AnnualRate),
	}
	if result == nil {
		return rec
	}
	rec.Balances = make([]decimal.Decimal, len(result.Entries))
	rec.Dates = make([]string, len(result.Entries))
	for i, e := range result.Entries {
		rec.Balances[i] = e.Balance.Round(2)
		rec.Dates[i] = e.Date.Format(simulation.DateLayout)
	}
	return rec
}

// Encode renders the record as an indented JSON document
func Encode(rec models.SnapshotRecord) []byte {
	w := wireRecord{
		InitialBalance:         amount(rec.InitialBalance),
		MonthlyContribution:    amount(rec.MonthlyContribution),
		HorizonDays:            rec.HorizonDays,
		Balances:               make([]amount, len(rec.Balances)),
		Dates:                  rec.Dates,
		ContributionPeriodDays: rec.ContributionPeriodDays,
	}
	if w.Dates == nil {
		w.Dates = []string{}
	}
	if rec.AnnualRate.Valid {
		r := rate(rec.AnnualRate.Decimal)
		w.AnnualRate = &r
	}
	for i, b := range rec.Balances {
		w.Balances[i] = amount(b)
	}
	// only fixed-shape values, marshalling cannot fail
	data, _ := json.MarshalIndent(w, "", "  ")
	return data
}

// Decode parses and validates an untrusted snapshot document.
// It returns either a complete record or an error wrapping
// ErrMalformedInput or ErrSchemaMismatch.
func Decode(data []byte) (*models.SnapshotRecord, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrMalformedInput)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level is not an object", ErrMalformedInput)
	}

	initial, err := nonNegativeAmount(root, fieldInitialBalance)
	if err != nil {
		return nil, err
	}
	contribution, err := nonNegativeAmount(root, fieldMonthlyContribution)
	if err != nil {
		return nil, err
	}
	days, err := positiveInt(root, fieldHorizonDays)
	if err != nil {
		return nil, err
	}

	balances, err := array(root, fieldBalances)
	if err != nil {
		return nil, err
	}
	dates, err := array(root, fieldDates)
	if err != nil {
		return nil, err
	}
	if len(balances) != len(dates) {
		return nil, fmt.Errorf("%w: %s has %d items, %s has %d",
			ErrSchemaMismatch, fieldBalances, len(balances), fieldDates, len(dates))
	}
	if len(balances) != days {
		return nil, fmt.Errorf("%w: %s declares %d days, series has %d",
			ErrSchemaMismatch, fieldHorizonDays, days, len(balances))
	}

	rec := &models.SnapshotRecord{
		InitialBalance:      initial,
		MonthlyContribution: contribution,
		HorizonDays:         days,
		Balances:            make([]decimal.Decimal, len(balances)),
		Dates:               make([]string, len(dates)),
	}
	if root.Get(fieldContributionPeriod).Exists() {
		if rec.ContributionPeriodDays, err = positiveInt(root, fieldContributionPeriod); err != nil {
			return nil, err
		}
	}
	if root.Get(fieldAnnualRate).Exists() {
		r, err := annualRate(root)
		if err != nil {
			return nil, err
		}
		rec.AnnualRate = decimal.NewNullDecimal(r)
	}

	for i, b := range balances {
		name := fmt.Sprintf("%s[%d]", fieldBalances, i)
		if b.Type != gjson.Number {
			return nil, fmt.Errorf("%w: %s is not a number", ErrSchemaMismatch, name)
		}
		v, err := decimal.NewFromString(b.Raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrSchemaMismatch, name, err)
		}
		if err := checkAmount(name, v); err != nil {
			return nil, err
		}
		rec.Balances[i] = simulation.Canonical(v, simulation.AmountPrecision)
	}
	for i, d := range dates {
		if d.Type != gjson.String {
			return nil, fmt.Errorf("%w: %s[%d] is not a string", ErrSchemaMismatch, fieldDates, i)
		}
		if _, err := time.Parse(simulation.DateLayout, d.Str); err != nil {
			return nil, fmt.Errorf("%w: %s[%d] %q is not a calendar date", ErrSchemaMismatch, fieldDates, i, d.Str)
		}
		rec.Dates[i] = d.Str
	}

	return rec, nil
}

func field(root gjson.Result, name string) (gjson.Result, error) {
	v := root.Get(name)
	if !v.Exists() {
		return v, fmt.Errorf("%w: missing field %s", ErrSchemaMismatch, name)
	}
	return v, nil
}

func number(root gjson.Result, name string) (decimal.Decimal, error) {
	v, err := field(root, name)
	if err != nil {
		return decimal.Zero, err
	}
	if v.Type != gjson.Number {
		return decimal.Zero, fmt.Errorf("%w: %s is not a number", ErrSchemaMismatch, name)
	}
	d, err := decimal.NewFromString(v.Raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrSchemaMismatch, name, err)
	}
	return d, nil
}

// checkAmount bounds a money value to cents and MaxBalance. Scale is
// checked first so huge exponents are rejected without rescaling.
func checkAmount(name string, d decimal.Decimal) error {
	if !simulation.FitsScale(d, simulation.AmountPrecision) {
		return fmt.Errorf("%w: %s has more than 2 fractional digits", ErrSchemaMismatch, name)
	}
	if !simulation.WithinMagnitude(d, simulation.MaxBalance) {
		return fmt.Errorf("%w: %s exceeds %s", ErrSchemaMismatch, name, simulation.MaxBalance)
	}
	return nil
}

func nonNegativeAmount(root gjson.Result, name string) (decimal.Decimal, error) {
	d, err := number(root, name)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s must not be negative", ErrSchemaMismatch, name)
	}
	if err := checkAmount(name, d); err != nil {
		return decimal.Zero, err
	}
	return simulation.Canonical(d, simulation.AmountPrecision), nil
}

func positiveInt(root gjson.Result, name string) (int, error) {
	d, err := number(root, name)
	if err != nil {
		return 0, err
	}
	if !simulation.FitsScale(d, 0) || !simulation.WithinMagnitude(d, maxInt32) || d.Sign() <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", ErrSchemaMismatch, name)
	}
	return int(d.IntPart()), nil
}

func annualRate(root gjson.Result) (decimal.Decimal, error) {
	d, err := number(root, fieldAnnualRate)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() || !simulation.FitsScale(d, simulation.RatePrecision) ||
		!simulation.WithinMagnitude(d, simulation.MaxAnnualRate) {
		return decimal.Zero, fmt.Errorf("%w: %s must be within 0..%s with at most %d fractional digits",
			ErrSchemaMismatch, fieldAnnualRate, simulation.MaxAnnualRate, simulation.RatePrecision)
	}
	return d, nil
}

func array(root gjson.Result, name string) ([]gjson.Result, error) {
	v, err := field(root, name)
	if err != nil {
		return nil, err
	}
	if !v.IsArray() {
		return nil, fmt.Errorf("%w: %s is not an array", ErrSchemaMismatch, name)
	}
	return v.Array(), nil
}
