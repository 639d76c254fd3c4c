/*
Copyright 2025 Openalms Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5401"

	// Defaults for the ledger lock (milliseconds). Ledger mutations complete in
	// microseconds to low milliseconds; waits beyond this mean something is wrong.
	DEFAULT_LOCK_TTL_MS  = 5000
	DEFAULT_LOCK_WAIT_MS = 2000
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Secure    bool   `json:"secure" envconfig:"FUNDPOOL_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"FUNDPOOL_SERVER_SECRET_KEY"`
	Port      string `json:"port" envconfig:"FUNDPOOL_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"FUNDPOOL_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"FUNDPOOL_REDIS_DNS"`
}

// LedgerConfig carries the pooled-fund ledger settings: the reporting currency,
// the minor-unit multiplier applied to API amounts, and the bounds of the
// distributed lock guarding the ledger row.
type LedgerConfig struct {
	Currency   string  `json:"currency" envconfig:"FUNDPOOL_LEDGER_CURRENCY"`
	Precision  float64 `json:"precision" envconfig:"FUNDPOOL_LEDGER_PRECISION"`
	LockTTLMS  int     `json:"lock_ttl_ms" envconfig:"FUNDPOOL_LEDGER_LOCK_TTL_MS"`
	LockWaitMS int     `json:"lock_wait_ms" envconfig:"FUNDPOOL_LEDGER_LOCK_WAIT_MS"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"FUNDPOOL_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"FUNDPOOL_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"FUNDPOOL_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"FUNDPOOL_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Ledger       LedgerConfig     `json:"ledger"`
	Notification Notification     `json:"notification"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("fundpool", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called fundpool.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Fundpool Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Ledger.Currency == "" {
		cnf.Ledger.Currency = "USD"
	}
	if cnf.Ledger.Precision <= 0 {
		cnf.Ledger.Precision = 100
	}
	if cnf.Ledger.LockTTLMS <= 0 {
		cnf.Ledger.LockTTLMS = DEFAULT_LOCK_TTL_MS
	}
	if cnf.Ledger.LockWaitMS <= 0 {
		cnf.Ledger.LockWaitMS = DEFAULT_LOCK_WAIT_MS
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	if mockConfig.Ledger.Precision <= 0 {
		mockConfig.Ledger.Precision = 100
	}
	if mockConfig.Ledger.LockTTLMS <= 0 {
		mockConfig.Ledger.LockTTLMS = DEFAULT_LOCK_TTL_MS
	}
	if mockConfig.Ledger.LockWaitMS <= 0 {
		mockConfig.Ledger.LockWaitMS = DEFAULT_LOCK_WAIT_MS
	}
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
