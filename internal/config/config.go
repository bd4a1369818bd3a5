package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"MarketTimeMachine/internal/replay"
)

// Config holds all application configuration.
type Config struct {
	Simulation struct {
		Notional          float64       `yaml:"notional"`
		TickInterval      time.Duration `yaml:"tick_interval"`
		EventPause        time.Duration `yaml:"event_pause"`
		LeverageCeiling   float64       `yaml:"leverage_ceiling"`
		ExposureTolerance float64       `yaml:"exposure_tolerance"`
		JournalSize       int           `yaml:"journal_size"`
	} `yaml:"simulation"`
	Server struct {
		Addr         string        `yaml:"addr"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`
	DataSource struct {
		BaseURL       string   `yaml:"base_url"`
		APIKey        string   `yaml:"api_key"`
		DataDir       string   `yaml:"data_dir"`
		Scenarios     []string `yaml:"scenarios"`
		RatePerMinute int      `yaml:"rate_per_minute"`
	} `yaml:"data_source"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken        string `yaml:"bot_token"`
		ChatID          string `yaml:"chat_id"`
		DefaultScenario string `yaml:"default_scenario"`
	} `yaml:"telegram"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TIMEMACHINE_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.DataSource.DataDir = v
	}
	if v := os.Getenv("SCENARIOS"); v != "" {
		cfg.DataSource.Scenarios = splitList(v)
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("LEVERAGE_CEILING"); v != "" {
		var ceiling float64
		if _, err := fmt.Sscanf(v, "%f", &ceiling); err == nil {
			cfg.Simulation.LeverageCeiling = ceiling
		}
	}
	if v := os.Getenv("CRON_REFRESH"); v != "" {
		cfg.Schedule.RefreshCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	// Defaults
	def := replay.DefaultConfig()
	if cfg.Simulation.Notional == 0 {
		cfg.Simulation.Notional = def.Notional
	}
	if cfg.Simulation.TickInterval == 0 {
		cfg.Simulation.TickInterval = def.TickInterval
	}
	if cfg.Simulation.EventPause == 0 {
		cfg.Simulation.EventPause = def.EventPause
	}
	if cfg.Simulation.LeverageCeiling == 0 {
		cfg.Simulation.LeverageCeiling = def.LeverageCeiling
	}
	if cfg.Simulation.ExposureTolerance == 0 {
		cfg.Simulation.ExposureTolerance = def.ExposureTolerance
	}
	if cfg.Simulation.JournalSize == 0 {
		cfg.Simulation.JournalSize = 200
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.DataSource.DataDir == "" {
		cfg.DataSource.DataDir = "data/scenarios"
	}
	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "0 0 3 * * *"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/timemachine.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	if c.Simulation.Notional <= 0 {
		return fmt.Errorf("simulation.notional must be positive")
	}
	if c.Simulation.TickInterval <= 0 {
		return fmt.Errorf("simulation.tick_interval must be positive")
	}
	if c.Simulation.EventPause < 0 {
		return fmt.Errorf("simulation.event_pause must not be negative")
	}
	if c.Simulation.LeverageCeiling <= 0 || c.Simulation.LeverageCeiling > 2 {
		return fmt.Errorf("simulation.leverage_ceiling must be in (0, 2]")
	}
	if c.Simulation.ExposureTolerance < 0 {
		return fmt.Errorf("simulation.exposure_tolerance must not be negative")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// Replay returns the stepper settings.
func (c *Config) Replay() replay.Config {
	return replay.Config{
		Notional:          c.Simulation.Notional,
		TickInterval:      c.Simulation.TickInterval,
		EventPause:        c.Simulation.EventPause,
		LeverageCeiling:   c.Simulation.LeverageCeiling,
		ExposureTolerance: c.Simulation.ExposureTolerance,
	}
}

// MaxPercent is the widest per-ticker allocation an input control accepts.
func (c *Config) MaxPercent() int {
	return int(c.Simulation.LeverageCeiling*100 + 0.5)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
