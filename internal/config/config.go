package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents a complete backtest run configuration
type Config struct {
	Account    AccountConfig    `json:"account" yaml:"account"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Data       DataConfig       `json:"data" yaml:"data"`
	Strategy   StrategyConfig   `json:"strategy" yaml:"strategy"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Report     ReportConfig     `json:"report" yaml:"report"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	Balance float64 `json:"balance" yaml:"balance"`
}

// SimulationConfig bounds the simulated period. Dates are YYYY-MM-DD.
type SimulationConfig struct {
	Start    string `json:"start" yaml:"start"`
	End      string `json:"end" yaml:"end"`
	HalfBake bool   `json:"half_bake" yaml:"half_bake"`
}

// DataConfig says where the bars live and how to read them
type DataConfig struct {
	Dir            string `json:"dir" yaml:"dir"`
	Format         string `json:"format" yaml:"format"` // "csv" or "parquet"
	CalendarSymbol string `json:"calendar_symbol" yaml:"calendar_symbol"`
	HalfBakeCount  int    `json:"half_bake_count" yaml:"half_bake_count"`
	UniverseFile   string `json:"universe_file,omitempty" yaml:"universe_file,omitempty"`
}

// StrategyConfig selects a strategy and carries its parameters. Each
// strategy reads only the fields it needs.
type StrategyConfig struct {
	Name        string   `json:"name" yaml:"name"`
	ShortPeriod int      `json:"short_period,omitempty" yaml:"short_period,omitempty"`
	LongPeriod  int      `json:"long_period,omitempty" yaml:"long_period,omitempty"`
	Budget      float64  `json:"budget,omitempty" yaml:"budget,omitempty"`
	Symbols     []string `json:"symbols,omitempty" yaml:"symbols,omitempty"`
	StopPct     float64  `json:"stop_pct,omitempty" yaml:"stop_pct,omitempty"`
	TargetPct   float64  `json:"target_pct,omitempty" yaml:"target_pct,omitempty"`
	ATRPeriod   int      `json:"atr_period,omitempty" yaml:"atr_period,omitempty"`
	ATRMult     float64  `json:"atr_mult,omitempty" yaml:"atr_mult,omitempty"`
	RiskPct     float64  `json:"risk_pct,omitempty" yaml:"risk_pct,omitempty"`
	RR          float64  `json:"rr,omitempty" yaml:"rr,omitempty"`
	ADXPeriod   int      `json:"adx_period,omitempty" yaml:"adx_period,omitempty"`
	ADXMin      float64  `json:"adx_min,omitempty" yaml:"adx_min,omitempty"`
	MaxOpen     int      `json:"max_open,omitempty" yaml:"max_open,omitempty"`
	MinRR       float64  `json:"min_rr,omitempty" yaml:"min_rr,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	EventsFile string `json:"events_file,omitempty" yaml:"events_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// ReportConfig controls the end of run summary
type ReportConfig struct {
	OrgPath   string  `json:"org_path,omitempty" yaml:"org_path,omitempty"`
	Increment float64 `json:"increment" yaml:"increment"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "console" or "json"
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON)
// and applies environment overrides before validating.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	ApplyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyEnvOverrides lets the environment point a config at other data.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BACKTEST_DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("BACKTEST_DB_PATH"); v != "" {
		cfg.Journal.DBPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be YYYY-MM-DD, got %q", field, s)
	}
	return t, nil
}

// StartDate parses simulation.start.
func (c *Config) StartDate() (time.Time, error) {
	return parseDate("simulation.start", c.Simulation.Start)
}

// EndDate parses simulation.end.
func (c *Config) EndDate() (time.Time, error) {
	return parseDate("simulation.end", c.Simulation.End)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	start, err := c.StartDate()
	if err != nil {
		return err
	}
	end, err := c.EndDate()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("simulation.end must not be before simulation.start")
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required")
	}
	if c.Data.Format != "csv" && c.Data.Format != "parquet" {
		return fmt.Errorf("data.format must be 'csv' or 'parquet'")
	}
	if c.Data.HalfBakeCount < 0 {
		return fmt.Errorf("data.half_bake_count must not be negative")
	}
	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	if c.Strategy.Budget < 0 {
		return fmt.Errorf("strategy.budget must not be negative")
	}
	if c.Strategy.RiskPct < 0 || c.Strategy.RiskPct > 1 {
		return fmt.Errorf("strategy.risk_pct must be between 0 and 1")
	}
	if c.Strategy.TargetPct < 0 {
		return fmt.Errorf("strategy.target_pct must not be negative")
	}
	if c.Strategy.StopPct < 0 || c.Strategy.StopPct >= 1 {
		return fmt.Errorf("strategy.stop_pct must be between 0 and 1")
	}
	if c.Strategy.ADXPeriod < 0 || c.Strategy.ADXMin < 0 || c.Strategy.ADXMin > 100 {
		return fmt.Errorf("strategy.adx_period must not be negative and adx_min must be between 0 and 100")
	}
	if c.Strategy.MaxOpen < 0 || c.Strategy.MinRR < 0 {
		return fmt.Errorf("strategy.max_open and strategy.min_rr must not be negative")
	}
	if c.Strategy.ShortPeriod < 0 || c.Strategy.LongPeriod < 0 {
		return fmt.Errorf("strategy periods must not be negative")
	}
	if c.Strategy.ShortPeriod > 0 && c.Strategy.LongPeriod > 0 && c.Strategy.ShortPeriod >= c.Strategy.LongPeriod {
		return fmt.Errorf("strategy.short_period must be less than strategy.long_period")
	}
	switch c.Journal.Type {
	case "none", "":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	if c.Report.Increment < 0 {
		return fmt.Errorf("report.increment must not be negative")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be 'console' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Balance: 30000,
		},
		Simulation: SimulationConfig{
			Start: "2016-01-02",
			End:   "2020-01-02",
		},
		Data: DataConfig{
			Dir:            "./data",
			Format:         "csv",
			CalendarSymbol: "AAPL",
			HalfBakeCount:  200,
		},
		Strategy: StrategyConfig{
			Name:        "sma-cross",
			ShortPeriod: 50,
			LongPeriod:  200,
			Budget:      1000,
		},
		Journal: JournalConfig{
			Type:       "sqlite",
			DBPath:     "./backtest.db",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
			EventsFile: "./events.csv",
		},
		Report: ReportConfig{
			Increment: 0.05,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
