package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRates(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadPricing_MissingFileUsesDefaults(t *testing.T) {
	p, err := LoadPricing(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.InDelta(t, 0.01, p.Epsilon, 0.0001)
	assert.InDelta(t, 0.1211, p.Rates["Technic"], 0.0001)
	assert.InDelta(t, 0.100, p.Rates[DefaultRateKey], 0.0001)
}

func TestLoadPricing_PreservesTagCase(t *testing.T) {
	path := writeRates(t, `
pricing:
  good_threshold: 0.85
  rates:
    default: 0.09
    Star Wars™: 0.11
`)
	p, err := LoadPricing(path)
	require.NoError(t, err)

	assert.InDelta(t, 0.85, p.GoodThreshold, 0.0001)
	assert.InDelta(t, 0.70, p.GreatThreshold, 0.0001) // inherited
	assert.InDelta(t, 0.11, p.Rates["Star Wars™"], 0.0001)
	_, lower := p.Rates["star wars™"]
	assert.False(t, lower)
}

func TestLoadPricing_ExplicitZeroEpsilonIsKept(t *testing.T) {
	path := writeRates(t, `
pricing:
  epsilon: 0
`)
	p, err := LoadPricing(path)
	require.NoError(t, err)

	assert.Zero(t, p.Epsilon)
	assert.InDelta(t, 0.80, p.GoodThreshold, 0.0001)
	assert.InDelta(t, 0.1211, p.Rates["Technic"], 0.0001)
}

func TestLoadPricing_ExplicitZeroThresholdIsRejected(t *testing.T) {
	path := writeRates(t, `
pricing:
  good_threshold: 0
`)
	_, err := LoadPricing(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "good_threshold")
}

func TestLoadPricing_RatesReplaceDefaults(t *testing.T) {
	path := writeRates(t, `
pricing:
  rates:
    default: 0.09
`)
	p, err := LoadPricing(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{DefaultRateKey: 0.09}, p.Rates)
}

func TestLoadPricing_RequiresDefaultRate(t *testing.T) {
	path := writeRates(t, `
pricing:
  rates:
    Technic: 0.12
`)
	_, err := LoadPricing(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default")
}

func TestLoadPricing_InvalidYAML(t *testing.T) {
	path := writeRates(t, "pricing: [unclosed")
	_, err := LoadPricing(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse pricing")
}

func TestPricingValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Pricing)
		wantErr string
	}{
		{"defaults", func(*Pricing) {}, ""},
		{"negative epsilon", func(p *Pricing) { p.Epsilon = -1 }, "epsilon"},
		{"good above one", func(p *Pricing) { p.GoodThreshold = 1.2 }, "good_threshold"},
		{"great above good", func(p *Pricing) { p.GreatThreshold = 0.9 }, "great_threshold"},
		{"zero default rate", func(p *Pricing) { p.Rates = map[string]float64{DefaultRateKey: 0} }, "default rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPricing()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
