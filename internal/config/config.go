package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// ChallengeConfig fixes the risk limits derived at account creation. The
// percentages are applied to the starting balance once; the resulting absolute
// amounts never change for the lifetime of the account.
type ChallengeConfig struct {
	DailyLossPercent    float64 `yaml:"daily_loss_percent"`
	MaxLossPercent      float64 `yaml:"max_loss_percent"`
	ProfitTargetPercent float64 `yaml:"profit_target_percent"`
	CredentialsServer   string  `yaml:"credentials_server"`
}

const (
	_dailyLossPercentDefault    = 0.05
	_maxLossPercentDefault      = 0.10
	_profitTargetPercentDefault = 0.10
	_credentialsServerDefault   = "PropFirm-Demo"
)

func (c *ChallengeConfig) Setup() {
	if c.DailyLossPercent <= 0 {
		c.DailyLossPercent = _dailyLossPercentDefault
	}
	if c.MaxLossPercent <= 0 {
		c.MaxLossPercent = _maxLossPercentDefault
	}
	if c.ProfitTargetPercent <= 0 {
		c.ProfitTargetPercent = _profitTargetPercentDefault
	}
	if c.CredentialsServer == "" {
		c.CredentialsServer = _credentialsServerDefault
	}
}

// QuotesConfig points at the external quote service. An empty address means
// no remote source is wired and trade requests must carry explicit prices.
type QuotesConfig struct {
	Address        string `yaml:"address"`
	RequestsPerMin int    `yaml:"requests_per_min"`
}

const _quoteRequestsPerMinDefault = 300

func (c *QuotesConfig) Setup() error {
	if c.Address != "" {
		if _, err := url.Parse(c.Address); err != nil {
			return err
		}
	}
	if c.RequestsPerMin <= 0 {
		c.RequestsPerMin = _quoteRequestsPerMinDefault
	}
	return nil
}

type ServiceConfig struct {
	HTTPPort  string          `yaml:"http_port"`
	Challenge ChallengeConfig `yaml:"challenge"`
	Quotes    QuotesConfig    `yaml:"quotes"`
}

const _httpPortDefault = "8080"

func (c *ServiceConfig) ValidateAndSetup() error {
	if c.HTTPPort == "" {
		c.HTTPPort = _httpPortDefault
	}

	c.Challenge.Setup()

	if err := c.Quotes.Setup(); err != nil {
		return fmt.Errorf("%w: can't setup quotes", err)
	}

	return nil
}

func LoadServiceConfig(filename string) (ServiceConfig, error) {
	var cfg ServiceConfig
	input, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("%w: can't read file", err)
	}

	if err := yaml.Unmarshal(input, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: can't unmarshal config", err)
	}

	if err := cfg.ValidateAndSetup(); err != nil {
		return cfg, fmt.Errorf("%w: can't setup cfg", err)
	}

	return cfg, nil
}
