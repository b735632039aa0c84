package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// SureTaxConfig carries the credentials and environment selection for the
// SureTax rating service. Constructed once per run and passed by reference
// into every taxing stage, never re-declared per call site.
type SureTaxConfig struct {
	ClientNumber  string `mapstructure:"clientNumber"`
	ValidationKey string `mapstructure:"validationKey"`
	Environment   string `mapstructure:"environment"` // CERT or PRODUCTION
}

const (
	EnvironmentCert       = "CERT"
	EnvironmentProduction = "PRODUCTION"
)

func (c SureTaxConfig) validate() error {
	if strings.TrimSpace(c.ClientNumber) == "" {
		return errors.New("suretax.clientNumber cannot be empty")
	}
	if strings.TrimSpace(c.ValidationKey) == "" {
		return errors.New("suretax.validationKey cannot be empty")
	}
	switch strings.ToUpper(strings.TrimSpace(c.Environment)) {
	case EnvironmentCert, EnvironmentProduction:
		return nil
	default:
		return errors.New("suretax.environment must be CERT or PRODUCTION")
	}
}

// SureTaxConfigHolder keeps the active SureTax configuration and reloads it
// when the backing file changes. A reload that fails validation is ignored
// so a running cycle never observes a broken credential set.
type SureTaxConfigHolder struct {
	current atomic.Value // holds SureTaxConfig
}

func NewSureTaxConfigHolder() (*SureTaxConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("suretax")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/billrun/config")
	v.AddConfigPath("/etc/billrun")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BILLRUN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("suretax.environment", EnvironmentCert)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg SureTaxConfig
	if err := v.UnmarshalKey("suretax", &cfg); err != nil {
		return nil, err
	}
	cfg.Environment = strings.ToUpper(strings.TrimSpace(cfg.Environment))
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	holder := &SureTaxConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated SureTaxConfig
		if err := v.UnmarshalKey("suretax", &updated); err != nil {
			log.Printf("[suretax-config] reload failed: %v", err)
			return
		}
		updated.Environment = strings.ToUpper(strings.TrimSpace(updated.Environment))
		if err := updated.validate(); err != nil {
			log.Printf("[suretax-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[suretax-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *SureTaxConfigHolder) Get() SureTaxConfig {
	return h.current.Load().(SureTaxConfig)
}

// NewStaticSureTaxConfigHolder wraps a fixed config, for tests.
func NewStaticSureTaxConfigHolder(cfg SureTaxConfig) *SureTaxConfigHolder {
	holder := &SureTaxConfigHolder{}
	holder.current.Store(cfg)
	return holder
}
