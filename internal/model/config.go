package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// --- Configuration Structures ---

type PaperWidth int

const (
	Paper80mm PaperWidth = 80
	Paper58mm PaperWidth = 58
)

// Columns is the printable character width for the paper size.
func (w PaperWidth) Columns() int {
	if w == Paper58mm {
		return 32
	}
	return 48
}

// Destination identifies a logical print target.
type Destination string

const (
	DestinationKitchen Destination = "kitchen"
	DestinationCashier Destination = "cashier"
)

// DestinationConfig is the per-destination printing policy. It is loaded once
// per session and treated as an immutable snapshot during a dispatch cycle.
type DestinationConfig struct {
	PrinterName string            `json:"printerName"`
	AutoPrint   bool              `json:"autoPrint"`
	Copies      int               `json:"copies"`
	PaperWidth  PaperWidth        `json:"paperWidth"`
	Restriction RestrictionWindow `json:"restriction"`
}

// CopyCount clamps the configured copies into the supported 1..5 range.
func (d DestinationConfig) CopyCount() int {
	switch {
	case d.Copies < 1:
		return 1
	case d.Copies > 5:
		return 5
	default:
		return d.Copies
	}
}

// RestrictionWindow suppresses auto-printing between Start and End, given as
// "HH:MM" local times. A window whose start is after its end wraps past
// midnight (23:00-01:00 covers 23:30 and 00:30). Manual reprints ignore it.
type RestrictionWindow struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w RestrictionWindow) Contains(t time.Time) bool {
	if !w.Enabled {
		return false
	}
	start, err1 := minutesOfDay(w.Start)
	end, err2 := minutesOfDay(w.End)
	if err1 != nil || err2 != nil {
		return false
	}
	now := t.Hour()*60 + t.Minute()
	if start <= end {
		return now >= start && now < end
	}
	// Overnight window.
	return now >= start || now < end
}

func minutesOfDay(hhmm string) (int, error) {
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", hhmm, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

// PrinterEndpoint maps a printer name to its network address.
type PrinterEndpoint struct {
	Name string `json:"name"`
	Host string `json:"host"`
	Port int    `json:"port"`
}

type Config struct {
	APIBaseURL     string            `json:"apiBaseUrl"`
	BearerToken    string            `json:"bearerToken,omitempty"`
	EventChannel   string            `json:"eventChannel"`
	PollIntervalS  int               `json:"pollIntervalSeconds"`
	RestaurantName string            `json:"restaurantName"`
	Currency       string            `json:"currency"`
	ControlAddr    string            `json:"controlAddr"`
	RedisAddr      string            `json:"redisAddr,omitempty"`
	Kitchen        DestinationConfig `json:"kitchen"`
	Cashier        DestinationConfig `json:"cashier"`
	Printers       []PrinterEndpoint `json:"printers"`
}

// PollInterval returns the configured poll interval, clamped to 5-10s.
func (c *Config) PollInterval() time.Duration {
	s := c.PollIntervalS
	if s < 5 {
		s = 5
	}
	if s > 10 {
		s = 10
	}
	return time.Duration(s) * time.Second
}

// DestinationConfigFor resolves the policy snapshot for a destination.
func (c *Config) DestinationConfigFor(d Destination) DestinationConfig {
	if d == DestinationKitchen {
		return c.Kitchen
	}
	return c.Cashier
}

func defaultConfig() Config {
	return Config{
		APIBaseURL:     "http://api.localhost",
		EventChannel:   "orders",
		PollIntervalS:  7,
		RestaurantName: "Restaurant",
		Currency:       "$",
		ControlAddr:    "127.0.0.1:9420",
		Kitchen:        DestinationConfig{PrinterName: "Kitchen", AutoPrint: true, Copies: 1, PaperWidth: Paper80mm},
		Cashier:        DestinationConfig{PrinterName: "Cashier", AutoPrint: true, Copies: 1, PaperWidth: Paper80mm},
	}
}

// LoadOrSetupConfig reads the JSON config file, writing one with defaults on
// first run, then applies environment overrides (a .env file is honored when
// present). The file is the persisted configuration the external management
// surface edits; env vars win for deployment overrides.
func LoadOrSetupConfig(path string) (Config, error) {
	config := defaultConfig()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return config, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := SaveConfig(path, config); err != nil {
			return config, err
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return config, err
		}
		if err := json.Unmarshal(data, &config); err != nil {
			return config, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	godotenv.Load()
	applyEnv(&config)
	return config, nil
}

// SaveConfig writes the configuration back on explicit save.
func SaveConfig(path string, config Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func applyEnv(c *Config) {
	c.APIBaseURL = getEnv("PRINT_AGENT_API_URL", c.APIBaseURL)
	c.BearerToken = getEnv("PRINT_AGENT_TOKEN", c.BearerToken)
	c.EventChannel = getEnv("PRINT_AGENT_CHANNEL", c.EventChannel)
	c.ControlAddr = getEnv("PRINT_AGENT_CONTROL_ADDR", c.ControlAddr)
	c.RedisAddr = getEnv("PRINT_AGENT_REDIS_ADDR", c.RedisAddr)
	c.PollIntervalS = getEnvAsInt("PRINT_AGENT_POLL_SECONDS", c.PollIntervalS)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
