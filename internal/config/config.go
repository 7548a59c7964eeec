package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	Port              string
	DBConn            string
	RedisAddr         string
	LogLevel          string
	JWTSecret         string
	HMACSecret        string
	AdminPasswordHash string

	// Central bank rate source
	BCBURL          string
	CDISeries       int
	CDIPercent      decimal.Decimal
	RateRefreshCron string

	// Simulation defaults
	DefaultAnnualRate          decimal.Decimal
	DefaultInitialBalance      decimal.Decimal
	DefaultMonthlyContribution decimal.Decimal
	DefaultHorizonDays         int
	MinHorizonDays             int
	MaxHorizonDays             int

	// Display
	LocaleFormatting bool
	Locale           string
	CurrencySymbol   string

	MaxUploadBytes int64

	// SMTP
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DBConn:            getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=cofrinho sslmode=disable"),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		LogLevel:          getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:         getEnv("JWT_SECRET", "secret"),
		HMACSecret:        getEnv("HMAC_SECRET", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		BCBURL:            getEnv("BCB_URL", "https://www3.bcb.gov.br/wssgs/services/FachadaWSSGS"),
		RateRefreshCron:   getEnv("RATE_REFRESH_CRON", "0 9 * * 1-5"),
		Locale:            getEnv("LOCALE", "pt-BR"),
		CurrencySymbol:    getEnv("CURRENCY_SYMBOL", "R$"),
		SMTPHost:          getEnv("SMTP_HOST", "localhost"),
		SMTPPort:          getEnv("SMTP_PORT", "1025"),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SenderEmail:       getEnv("SENDER_EMAIL", "cofrinho@localhost"),
	}

	var err error
	if cfg.CDISeries, err = getInt("CDI_SERIES", 4389); err != nil {
		return nil, err
	}
	if cfg.CDIPercent, err = getDecimal("CDI_PERCENT", "100"); err != nil {
		return nil, err
	}
	if cfg.DefaultAnnualRate, err = getDecimal("DEFAULT_ANNUAL_RATE", "0.1065"); err != nil {
		return nil, err
	}
	if cfg.DefaultInitialBalance, err = getDecimal("DEFAULT_INITIAL_BALANCE", "10000"); err != nil {
		return nil, err
	}
	if cfg.DefaultMonthlyContribution, err = getDecimal("DEFAULT_MONTHLY_CONTRIBUTION", "0"); err != nil {
		return nil, err
	}
	if cfg.DefaultHorizonDays, err = getInt("DEFAULT_HORIZON_DAYS", 180); err != nil {
		return nil, err
	}
	if cfg.MinHorizonDays, err = getInt("MIN_HORIZON_DAYS", 1); err != nil {
		return nil, err
	}
	if cfg.MaxHorizonDays, err = getInt("MAX_HORIZON_DAYS", 3650); err != nil {
		return nil, err
	}
	if cfg.LocaleFormatting, err = getBool("LOCALE_FORMATTING", true); err != nil {
		return nil, err
	}
	maxUpload, err := getInt("MAX_UPLOAD_BYTES", 1<<20)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.HMACSecret == "" {
		return nil, fmt.Errorf("HMAC_SECRET is required")
	}
	if cfg.MinHorizonDays < 1 || cfg.MaxHorizonDays < cfg.MinHorizonDays {
		return nil, fmt.Errorf("MIN_HORIZON_DAYS/MAX_HORIZON_DAYS: invalid range %d..%d", cfg.MinHorizonDays, cfg.MaxHorizonDays)
	}
	if cfg.DefaultHorizonDays < cfg.MinHorizonDays || cfg.DefaultHorizonDays > cfg.MaxHorizonDays {
		return nil, fmt.Errorf("DEFAULT_HORIZON_DAYS must be within %d..%d", cfg.MinHorizonDays, cfg.MaxHorizonDays)
	}
	if cfg.DefaultAnnualRate.IsNegative() || cfg.CDIPercent.IsNegative() {
		return nil, fmt.Errorf("DEFAULT_ANNUAL_RATE and CDI_PERCENT must not be negative")
	}
	if cfg.DefaultInitialBalance.IsNegative() || cfg.DefaultMonthlyContribution.IsNegative() {
		return nil, fmt.Errorf("default amounts must not be negative")
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, value)
	}
	return n, nil
}

func getBool(key string, defaultVal bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, value)
	}
	return b, nil
}

func getDecimal(key, defaultVal string) (decimal.Decimal, error) {
	value := getEnv(key, defaultVal)
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid decimal %q", key, value)
	}
	return d, nil
}
