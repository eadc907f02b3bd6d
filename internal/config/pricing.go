package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	DriftLevelWarn  = "warn"
	DriftLevelError = "error"
)

// PricingConfig holds tunables for the pricing and ledger subsystems.
type PricingConfig struct {
	CounterDrift  string `mapstructure:"counterDrift"`
	MaxPageSize   int    `mapstructure:"maxPageSize"`
	SubtotalScale int32  `mapstructure:"subtotalScale"`
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		CounterDrift:  DriftLevelWarn,
		MaxPageSize:   100,
		SubtotalScale: 2,
	}
}

type PricingConfigHolder struct {
	current atomic.Value // holds PricingConfig
}

// NewStaticPricingConfigHolder returns a holder that never reloads.
func NewStaticPricingConfigHolder(cfg PricingConfig) *PricingConfigHolder {
	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewPricingConfigHolder() (*PricingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/lingoflow")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LINGOFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPricingConfig()
	v.SetDefault("pricing.counterDrift", defaults.CounterDrift)
	v.SetDefault("pricing.maxPageSize", defaults.MaxPageSize)
	v.SetDefault("pricing.subtotalScale", defaults.SubtotalScale)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		watch = false
	}

	var cfg PricingConfig
	if err := v.UnmarshalKey("pricing", &cfg); err != nil {
		return nil, err
	}
	if err := validatePricingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticPricingConfigHolder(cfg)
	if !watch {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PricingConfig
		if err := v.UnmarshalKey("pricing", &updated); err != nil {
			log.Printf("[pricing-config] reload failed: %v", err)
			return
		}
		if err := validatePricingConfig(updated); err != nil {
			log.Printf("[pricing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[pricing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PricingConfigHolder) Get() PricingConfig {
	if h == nil {
		return DefaultPricingConfig()
	}
	cfg, ok := h.current.Load().(PricingConfig)
	if !ok {
		return DefaultPricingConfig()
	}
	return cfg
}

func validatePricingConfig(cfg PricingConfig) error {
	switch strings.ToLower(strings.TrimSpace(cfg.CounterDrift)) {
	case DriftLevelWarn, DriftLevelError:
	default:
		return errors.New("pricing.counterDrift must be warn or error")
	}
	if cfg.MaxPageSize <= 0 {
		return errors.New("pricing.maxPageSize must be positive")
	}
	if cfg.SubtotalScale < 0 || cfg.SubtotalScale > 6 {
		return errors.New("pricing.subtotalScale must be between 0 and 6")
	}
	return nil
}
