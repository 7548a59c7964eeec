package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/cofrinho-service/internal/config"
	"github.com/Dan9191/cofrinho-service/internal/models"
	"github.com/Dan9191/cofrinho-service/internal/money"
	"github.com/Dan9191/cofrinho-service/internal/repository"
	"github.com/Dan9191/cofrinho-service/internal/simulation"
	"github.com/Dan9191/cofrinho-service/internal/snapshot"
	"github.com/Dan9191/cofrinho-service/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// ExportFilename is the name offered for downloaded snapshots
const ExportFilename = "simulacao_cofrinho.json"

var (
	// ErrInvalidCredentials is returned by Login
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidSignature is returned when an imported file fails its HMAC check
	ErrInvalidSignature = errors.New("invalid snapshot signature")
)

// RateSource fetches the current benchmark rate
type RateSource interface {
	GetKeyRate(ctx context.Context) (*models.KeyRate, error)
}

// Mailer delivers exported snapshots
type Mailer interface {
	SendSnapshot(to, filename string, data []byte, summary string) error
}

// Service handles business logic
type Service struct {
	rates     repository.RateStore
	source    RateSource
	mailer    Mailer
	formatter *money.Formatter
	log       *logrus.Logger
	config    *config.Config
	now       func() time.Time
}

// NewService initializes a new service
func NewService(rates repository.RateStore, source RateSource, mailer Mailer, log *logrus.Logger, cfg *config.Config) (*Service, error) {
	formatter, err := money.NewFormatter(cfg.Locale, cfg.CurrencySymbol, cfg.LocaleFormatting)
	if err != nil {
		return nil, err
	}
	return &Service{
		rates:     rates,
		source:    source,
		mailer:    mailer,
		formatter: formatter,
		log:       log,
		config:    cfg,
		now:       time.Now,
	}, nil
}

// CurrentRate returns the annual rate fraction used for simulations:
// the latest stored CDI times the configured CDI percentage, or the
// configured default when no observation is available.
func (s *Service) CurrentRate(ctx context.Context) models.RateQuote {
	kr, err := s.rates.LatestRate(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warnf("Failed to load stored rate, using default: %v", err)
		}
		return models.RateQuote{AnnualRate: s.config.DefaultAnnualRate, Source: "default"}
	}
	annual := kr.Rate.Mul(s.config.CDIPercent).Div(decimal.NewFromInt(10000))
	return models.RateQuote{
		AnnualRate: annual,
		Source:     fmt.Sprintf("sgs:%d", kr.Series),
		Date:       kr.Date.Format(simulation.DateLayout),
	}
}

// BuildParameters resolves request defaults and bounds. The start date
// and the annual rate are resolved here, once per request.
func (s *Service) BuildParameters(ctx context.Context, req models.SimulationRequest) (models.SimulationParameters, error) {
	initial := s.config.DefaultInitialBalance
	if req.InitialBalance != nil {
		initial = *req.InitialBalance
	}
	contribution := s.config.DefaultMonthlyContribution
	if req.MonthlyContribution != nil {
		contribution = *req.MonthlyContribution
	}
	days := s.config.DefaultHorizonDays
	if req.HorizonDays != nil {
		days = *req.HorizonDays
	}
	if days < s.config.MinHorizonDays || days > s.config.MaxHorizonDays {
		return models.SimulationParameters{}, &simulation.ParamError{
			Field:  "horizon_days",
			Reason: fmt.Sprintf("must be between %d and %d", s.config.MinHorizonDays, s.config.MaxHorizonDays),
		}
	}

	start := s.now()
	if req.StartDate != "" {
		parsed, err := time.Parse(simulation.DateLayout, req.StartDate)
		if err != nil {
			return models.SimulationParameters{}, &simulation.ParamError{Field: "start_date", Reason: "must be a YYYY-MM-DD date"}
		}
		start = parsed
	}

	opts := []simulation.Option{
		simulation.WithStartDate(start),
		simulation.WithAnnualRate(s.CurrentRate(ctx).AnnualRate),
	}
	if req.ContributionPeriodDays != nil {
		opts = append(opts, simulation.WithContributionPeriod(*req.ContributionPeriodDays))
	}

	params := simulation.NewParameters(initial, contribution, days, opts...)
	if err := simulation.Validate(params); err != nil {
		return models.SimulationParameters{}, err
	}
	return params, nil
}

func (s *Service) run(ctx context.Context, req models.SimulationRequest) (models.SimulationParameters, *models.SimulationResult, error) {
	params, err := s.BuildParameters(ctx, req)
	if err != nil {
		return params, nil, err
	}
	result, err := simulation.Simulate(params)
	if err != nil {
		return params, nil, err
	}
	return params, result, nil
}

// Simulate runs a simulation and formats it for display
func (s *Service) Simulate(ctx context.Context, req models.SimulationRequest) (*models.SimulationResponse, error) {
	params, result, err := s.run(ctx, req)
	if err != nil {
		return nil, err
	}

	final := result.FinalBalance()
	resp := &models.SimulationResponse{
		InitialBalance:        params.InitialBalance.StringFixed(2),
		MonthlyContribution:   params.MonthlyContribution.StringFixed(2),
		HorizonDays:           params.HorizonDays,
		AnnualRate:            params.AnnualRate.String(),
		Entries:               make([]models.BalancePoint, len(result.Entries)),
		FinalBalance:          final.StringFixed(2),
		FormattedFinalBalance: s.formatter.Format(final),
		Summary:               s.formatter.Summary(params.HorizonDays, final),
	}
	for i, e := range result.Entries {
		resp.Entries[i] = models.BalancePoint{
			Date:    e.Date.Format(simulation.DateLayout),
			Balance: e.Balance.StringFixed(2),
		}
	}

	s.log.Debugf("Simulated %d days from %s: final %s", params.HorizonDays, resp.InitialBalance, resp.FinalBalance)
	return resp, nil
}

// Export runs a simulation and encodes it as a signed snapshot file
func (s *Service) Export(ctx context.Context, req models.SimulationRequest) ([]byte, string, error) {
	params, result, err := s.run(ctx, req)
	if err != nil {
		return nil, "", err
	}
	data := snapshot.Encode(snapshot.ToSnapshot(params, result))
	return data, utils.SignSnapshot(data, s.config.HMACSecret), nil
}

// Import decodes an uploaded snapshot. A non-empty signature must match;
// with verify set the series is replayed with the rate and period stored in
// the file, falling back to the current rate for files that lack them.
func (s *Service) Import(ctx context.Context, data []byte, signature string, verify bool) (*models.SnapshotResponse, error) {
	if signature != "" {
		if err := utils.VerifySnapshot(data, signature, s.config.HMACSecret); err != nil {
			s.log.Warnf("Rejected snapshot import: %v", err)
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
	}

	rec, err := snapshot.Decode(data)
	if err != nil {
		s.log.Infof("Rejected snapshot import: %v", err)
		return nil, err
	}

	if verify {
		params := simulation.NewParameters(rec.InitialBalance, rec.MonthlyContribution, rec.HorizonDays,
			simulation.WithAnnualRate(s.CurrentRate(ctx).AnnualRate))
		if err := snapshot.Verify(rec, params); err != nil {
			return nil, err
		}
	}

	resp := &models.SnapshotResponse{
		InitialBalance:      rec.InitialBalance.StringFixed(2),
		MonthlyContribution: rec.MonthlyContribution.StringFixed(2),
		HorizonDays:         rec.HorizonDays,
		Entries:             make([]models.BalancePoint, len(rec.Balances)),
		Verified:            verify,
	}
	resp.ContributionPeriodDays = rec.ContributionPeriodDays
	if rec.AnnualRate.Valid {
		resp.AnnualRate = rec.AnnualRate.Decimal.String()
	}
	for i := range rec.Balances {
		resp.Entries[i] = models.BalancePoint{Date: rec.Dates[i], Balance: rec.Balances[i].StringFixed(2)}
	}
	s.log.Infof("Snapshot imported: %d days", rec.HorizonDays)
	return resp, nil
}

// EmailExport mails the snapshot of a simulation
func (s *Service) EmailExport(ctx context.Context, to string, req models.SimulationRequest) error {
	if to == "" {
		return &simulation.ParamError{Field: "to", Reason: "is required"}
	}
	params, result, err := s.run(ctx, req)
	if err != nil {
		return err
	}
	data := snapshot.Encode(snapshot.ToSnapshot(params, result))
	return s.mailer.SendSnapshot(to, ExportFilename, data, s.formatter.Summary(params.HorizonDays, result.FinalBalance()))
}

// RefreshRate fetches the current CDI and stores it
func (s *Service) RefreshRate(ctx context.Context) (*models.KeyRate, error) {
	rate, err := s.source.GetKeyRate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rate: %w", err)
	}
	if rate.Rate.IsNegative() {
		return nil, fmt.Errorf("refusing negative rate %s", rate.Rate)
	}
	if err := s.rates.SaveRate(ctx, rate); err != nil {
		return nil, err
	}
	s.log.Infof("Rate stored: series %d, %s%% on %s", rate.Series, rate.Rate, rate.Date.Format(simulation.DateLayout))
	return rate, nil
}

// Login authenticates the administrator and returns a JWT token
func (s *Service) Login(password string) (string, error) {
	if s.config.AdminPasswordHash == "" {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.config.AdminPasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(s.now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("Administrator logged in")
	return tokenString, nil
}
