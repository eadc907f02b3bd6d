package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePricingConfig(t *testing.T) {
	cases := []struct {
		name    string
		cfg     PricingConfig
		wantErr bool
	}{
		{name: "defaults", cfg: DefaultPricingConfig()},
		{name: "error drift level", cfg: PricingConfig{CounterDrift: "error", MaxPageSize: 10, SubtotalScale: 4}},
		{name: "unknown drift level", cfg: PricingConfig{CounterDrift: "panic", MaxPageSize: 10, SubtotalScale: 2}, wantErr: true},
		{name: "zero page size", cfg: PricingConfig{CounterDrift: "warn", MaxPageSize: 0, SubtotalScale: 2}, wantErr: true},
		{name: "scale too large", cfg: PricingConfig{CounterDrift: "warn", MaxPageSize: 10, SubtotalScale: 9}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePricingConfig(tc.cfg)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPricingConfigHolderNilFallsBackToDefaults(t *testing.T) {
	var holder *PricingConfigHolder
	assert.Equal(t, DefaultPricingConfig(), holder.Get())

	static := NewStaticPricingConfigHolder(PricingConfig{CounterDrift: "error", MaxPageSize: 5, SubtotalScale: 3})
	assert.Equal(t, int32(3), static.Get().SubtotalScale)
}
