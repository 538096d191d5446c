package application

import (
	"errors"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// WaterRates prices water consumption: supply and sewage per cubic meter
// plus a fixed monthly subscription fee per meter.
type WaterRates struct {
	SupplyRate float64 `yaml:"supply_rate"`
	SewageRate float64 `yaml:"sewage_rate"`
	FixedFee   float64 `yaml:"fixed_fee"`
}

// Config defines billing engine configuration.
type Config struct {
	Currency       string     `yaml:"currency"`
	DueDays        int        `yaml:"due_days"`
	BatchChunkSize int        `yaml:"batch_chunk_size"`
	Water          WaterRates `yaml:"water"`
}

// LoadConfig loads config from yaml (BILLING_CONFIG) with env fallbacks,
// starting from the built-in defaults.
func LoadConfig() (Config, error) {
	cfg := Config{
		Currency:       getenvDefault("BILLING_CURRENCY", "EUR"),
		DueDays:        getenvIntDefault("BILLING_DUE_DAYS", 14),
		BatchChunkSize: getenvIntDefault("BILLING_BATCH_CHUNK_SIZE", 50),
		Water: WaterRates{
			SupplyRate: getenvFloatDefault("BILLING_WATER_SUPPLY_RATE", 0.97),
			SewageRate: getenvFloatDefault("BILLING_WATER_SEWAGE_RATE", 1.23),
			FixedFee:   getenvFloatDefault("BILLING_WATER_FIXED_FEE", 0.85),
		},
	}

	if path := os.Getenv("BILLING_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.DueDays <= 0 {
		return cfg, errors.New("billing config: due days must be positive")
	}
	if cfg.BatchChunkSize <= 0 {
		return cfg, errors.New("billing config: batch chunk size must be positive")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
