package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
	_ "time/tzdata"

	"econ-calendar-bot/internal/types"
)

type Config struct {
	Timezone            string   `yaml:"timezone" default:"Europe/Berlin" validate:"required"`
	Countries           []string `yaml:"countries" default:"[\"germany\",\"united states\"]" validate:"min=1,dive,required"`
	Tickers             []string `yaml:"tickers"`
	ImportanceThreshold int      `yaml:"importance_threshold" default:"2" validate:"gte=1,lte=3"`
	HighImportance      int      `yaml:"high_importance" default:"3" validate:"gte=1,lte=3"`

	Schedule struct {
		PollInterval        time.Duration `yaml:"poll_interval" default:"60s" validate:"gte=5s"`
		ActiveStart         string        `yaml:"active_start" default:"07:00" validate:"required"`
		ActiveEnd           string        `yaml:"active_end" default:"22:00" validate:"required"`
		WeekdaysOnly        bool          `yaml:"weekdays_only" default:"true"`
		DigestAt            string        `yaml:"digest_at" default:"22:00" validate:"required"`
		TomorrowCutover     string        `yaml:"tomorrow_cutover" default:"20:00"`
		SeparateReminderJob bool          `yaml:"separate_reminder_job"`
	} `yaml:"schedule"`

	Reminder struct {
		Enabled bool          `yaml:"enabled" default:"true"`
		MinLead time.Duration `yaml:"min_lead" default:"240s" validate:"gte=0"`
		MaxLead time.Duration `yaml:"max_lead" default:"360s" validate:"gtefield=MinLead"`
		TTL     time.Duration `yaml:"ttl" default:"10m"`
	} `yaml:"reminder"`

	Classifier struct {
		NegativeGood []string `yaml:"negative_good"`
		PositiveGood []string `yaml:"positive_good"`
	} `yaml:"classifier"`

	Posted struct {
		Backend string `yaml:"backend" default:"file" validate:"oneof=file redis"`
		Dir     string `yaml:"dir" default:"data"`
		Redis   struct {
			Addr   string `yaml:"addr" default:"localhost:6379"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix" default:"econbot"`
		} `yaml:"redis"`
	} `yaml:"posted"`

	Provider struct {
		Source        string        `yaml:"source" default:"LIVE" validate:"oneof=LIVE STATIC"`
		CalendarURL   string        `yaml:"calendar_url" default:"https://www.investing.com/economic-calendar/"`
		EarningsURL   string        `yaml:"earnings_url" default:"https://api.nasdaq.com/api/calendar/earnings"`
		RatePerSecond float64       `yaml:"rate_per_second" default:"0.5" validate:"gt=0"`
		Burst         int           `yaml:"burst" default:"1" validate:"gte=1"`
		Timeout       time.Duration `yaml:"timeout" default:"30s"`
	} `yaml:"provider"`

	LLM struct {
		Provider    string  `yaml:"provider" default:"NONE" validate:"oneof=NONE OPENAI CLAUDE"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens" default:"20"`
		Temperature float32 `yaml:"temperature" default:"0.2"`
	} `yaml:"llm"`

	Sink struct {
		Kind     string `yaml:"kind" default:"DISCORD" validate:"oneof=DISCORD CONSOLE"`
		Username string `yaml:"username" default:"Wirtschaftskalender"`
	} `yaml:"sink"`

	Journal struct {
		Dir           string `yaml:"dir" default:"logs"`
		RetentionDays int    `yaml:"retention_days" default:"30"`
	} `yaml:"journal"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

var validate = validator.New()

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
	}

	clocks := map[string]string{
		"schedule.active_start": c.Schedule.ActiveStart,
		"schedule.active_end":   c.Schedule.ActiveEnd,
		"schedule.digest_at":    c.Schedule.DigestAt,
	}
	if c.Schedule.TomorrowCutover != "" {
		clocks["schedule.tomorrow_cutover"] = c.Schedule.TomorrowCutover
	}
	for name, v := range clocks {
		if _, ok := types.ParseTimeOfDay(v); !ok {
			return fmt.Errorf("%s must be HH:MM, got '%s'", name, v)
		}
	}

	start, _ := types.ParseTimeOfDay(c.Schedule.ActiveStart)
	end, _ := types.ParseTimeOfDay(c.Schedule.ActiveEnd)
	if !start.Before(end) {
		return fmt.Errorf("schedule.active_start (%s) must be before schedule.active_end (%s)", start, end)
	}
	if c.HighImportance < c.ImportanceThreshold {
		return errors.New("high_importance cannot be below importance_threshold")
	}
	return nil
}

// Environment overrides for the switches most often flipped per deployment.
var envOverrides = map[string]func(*Config, string){
	"ECONBOT_TIMEZONE":        func(c *Config, v string) { c.Timezone = v },
	"ECONBOT_PROVIDER_SOURCE": func(c *Config, v string) { c.Provider.Source = strings.ToUpper(v) },
	"ECONBOT_LLM_PROVIDER":    func(c *Config, v string) { c.LLM.Provider = strings.ToUpper(v) },
	"ECONBOT_SINK_KIND":       func(c *Config, v string) { c.Sink.Kind = strings.ToUpper(v) },
	"ECONBOT_POSTED_BACKEND":  func(c *Config, v string) { c.Posted.Backend = strings.ToLower(v) },
	"ECONBOT_REDIS_ADDR":      func(c *Config, v string) { c.Posted.Redis.Addr = v },
	"ECONBOT_METRICS_ADDR":    func(c *Config, v string) { c.Metrics.Addr = v },
}

func (c *Config) applyEnv() {
	for key, set := range envOverrides {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			set(c, v)
		}
	}
}

// LoadConfig reads path, applies defaults and validates.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

// ParseConfig is LoadConfig over an in-memory document.
func ParseConfig(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyEnv()
	for i, country := range c.Countries {
		c.Countries[i] = strings.ToLower(strings.TrimSpace(country))
	}
	for i, ticker := range c.Tickers {
		c.Tickers[i] = strings.ToUpper(strings.TrimSpace(ticker))
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
