package snapshot

import (
	"fmt"
	"time"

	"github.com/Dan9191/cofrinho-service/internal/models"
	"github.com/Dan9191/cofrinho-service/internal/simulation"
)

// Verify replays the simulation described by rec and compares the series.
// The replay uses rec's amounts and horizon, starting the day before the
// first stored date. The contribution period and annual rate come from rec
// when it carries them and from params otherwise.
func Verify(rec *models.SnapshotRecord, params models.SimulationParameters) error {
	if rec == nil || len(rec.Dates) == 0 {
		return fmt.Errorf("%w: empty record", ErrSchemaMismatch)
	}
	if len(rec.Balances) != len(rec.Dates) || len(rec.Dates) != rec.HorizonDays {
		return fmt.Errorf("%w: series length does not match %d days", ErrSchemaMismatch, rec.HorizonDays)
	}
	first, err := time.Parse(simulation.DateLayout, rec.Dates[0])
	if err != nil {
		return fmt.Errorf("%w: %s[0] %q is not a calendar date", ErrSchemaMismatch, fieldDates, rec.Dates[0])
	}

	params.InitialBalance = rec.InitialBalance
	params.MonthlyContribution = rec.MonthlyContribution
	params.HorizonDays = rec.HorizonDays
	params.StartDate = first.AddDate(0, 0, -1)
	if rec.ContributionPeriodDays > 0 {
		params.ContributionPeriodDays = rec.ContributionPeriodDays
	}
	if rec.AnnualRate.Valid {
		params.AnnualRate = rec.AnnualRate.Decimal
	}

	result, err := simulation.Simulate(params)
	if err != nil {
		return err
	}
	replayed := ToSnapshot(params, result)
	for i := range replayed.Balances {
		if replayed.Dates[i] != rec.Dates[i] {
			return fmt.Errorf("%w: day %d date %s, expected %s", ErrReplayMismatch, i+1, rec.Dates[i], replayed.Dates[i])
		}
		if !replayed.Balances[i].Equal(rec.Balances[i]) {
			return fmt.Errorf("%w: day %d balance %s, expected %s",
				ErrReplayMismatch, i+1, rec.Balances[i].StringFixed(2), replayed.Balances[i].StringFixed(2))
		}
	}
	return nil
}
