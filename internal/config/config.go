package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	WSURL     string `yaml:"ws_url"`
	HealthURL string `yaml:"health_url"`

	ReconnectMax  int           `yaml:"reconnect_max"`
	ReconnectBase time.Duration `yaml:"reconnect_base"`
	DialTimeout   time.Duration `yaml:"dial_timeout"`
	PingInterval  time.Duration `yaml:"ping_interval"`
	AutoConnect   bool          `yaml:"auto_connect"`

	Rules       string        `yaml:"rules"`
	TimeControl time.Duration `yaml:"time_control"`

	MessagesDir string `yaml:"messages_dir"`
}

func defaults() *AppConfig {
	return &AppConfig{
		WSURL:         "ws://localhost:8080",
		ReconnectMax:  5,
		ReconnectBase: time.Second,
		DialTimeout:   10 * time.Second,
		PingInterval:  30 * time.Second,
		Rules:         "standard",
		TimeControl:   10 * time.Minute,
	}
}

// Load builds the config from defaults, then CHESS_CONFIG_FILE if set, then
// the environment.
func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("CHESS_CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("CHESS_WS_URL")); v != "" {
		c.WSURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_HEALTH_URL")); v != "" {
		c.HealthURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_RECONNECT_MAX")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.ReconnectMax = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_RECONNECT_BASE_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ReconnectBase = time.Duration(n) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_DIAL_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.DialTimeout = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_PING_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			c.PingInterval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_AUTO_CONNECT")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.AutoConnect = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_RULES")); v != "" {
		c.Rules = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_TIME_CONTROL")); v != "" {
		// "0" and "none" both disable the clock
		if v == "none" {
			c.TimeControl = 0
		} else if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			c.TimeControl = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_MESSAGES_DIR")); v != "" {
		c.MessagesDir = v
	}
}

func (c *AppConfig) validate() error {
	u, err := url.Parse(c.WSURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("CHESS_WS_URL is invalid: %q", c.WSURL)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("CHESS_WS_URL must use ws or wss, got %q", u.Scheme)
	}
	if c.ReconnectMax < 0 {
		return errors.New("CHESS_RECONNECT_MAX must be >= 0")
	}
	if c.ReconnectBase <= 0 {
		return errors.New("CHESS_RECONNECT_BASE_MS must be > 0")
	}
	switch c.Rules {
	case "standard", "adjacent":
	default:
		return fmt.Errorf("CHESS_RULES must be standard or adjacent, got %q", c.Rules)
	}
	if c.TimeControl < 0 {
		return errors.New("CHESS_TIME_CONTROL must be >= 0")
	}
	return nil
}

// HealthEndpoint is HealthURL, or the http(s) origin of WSURL with /health.
func (c *AppConfig) HealthEndpoint() string {
	if c.HealthURL != "" {
		return c.HealthURL
	}
	u, err := url.Parse(c.WSURL)
	if err != nil {
		return ""
	}
	scheme := "http"
	if u.Scheme == "wss" {
		scheme = "https"
	}
	return scheme + "://" + u.Host + "/health"
}
