package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DefaultRateKey is the rate used when a collection has no entry of its own.
const DefaultRateKey = "default"

// Pricing holds the fair-price policy: change epsilon, deal thresholds and
// the per-collection price-per-piece table.
type Pricing struct {
	Epsilon        float64            `yaml:"epsilon"`
	GoodThreshold  float64            `yaml:"good_threshold"`
	GreatThreshold float64            `yaml:"great_threshold"`
	Rates          map[string]float64 `yaml:"rates"`
}

// DefaultPricing returns the built-in policy, tuned on French retail prices.
func DefaultPricing() Pricing {
	return Pricing{
		Epsilon:        0.01,
		GoodThreshold:  0.80,
		GreatThreshold: 0.70,
		Rates: map[string]float64{
			"Architecture":             0.088,
			"Art":                      0.073,
			"The Botanical Collection": 0.0817,
			"Creator 3-en-1":           0.0835,
			"Disney™":                  0.102,
			"Harry Potter™":            0.0941,
			"LEGO® Icons":              0.0883,
			"Ideas":                    0.0940,
			"One Piece":                0.0886,
			"Speed Champions":          0.0886,
			"Star Wars™":               0.1024,
			"LEGO® Super Mario™":       0.1108,
			"Technic":                  0.1211,
			DefaultRateKey:             0.100,
		},
	}
}

// LoadPricing reads the pricing policy from a YAML file. A missing file
// yields DefaultPricing; keys absent from the file inherit the defaults.
func LoadPricing(path string) (Pricing, error) {
	def := DefaultPricing()
	if path == "" {
		return def, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return def, nil
	}
	if err != nil {
		return Pricing{}, eris.Wrapf(err, "config: read pricing %s", path)
	}

	// The file has a top-level "pricing" key. Scalars decode over the
	// defaults so that only keys present in the file override them; a rates
	// table in the file replaces the built-in one as a whole.
	var wrapper struct {
		Pricing Pricing `yaml:"pricing"`
	}
	wrapper.Pricing = def
	wrapper.Pricing.Rates = nil
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Pricing{}, eris.Wrapf(err, "config: parse pricing %s", path)
	}

	p := wrapper.Pricing
	if len(p.Rates) == 0 {
		p.Rates = def.Rates
	}

	if err := p.Validate(); err != nil {
		return Pricing{}, err
	}
	return p, nil
}

// Validate checks the invariants the reconciler relies on.
func (p Pricing) Validate() error {
	if p.Epsilon < 0 {
		return eris.Errorf("config: pricing epsilon must not be negative, got %v", p.Epsilon)
	}
	if p.GoodThreshold <= 0 || p.GoodThreshold > 1 {
		return eris.Errorf("config: pricing good_threshold must be in (0,1], got %v", p.GoodThreshold)
	}
	if p.GreatThreshold <= 0 || p.GreatThreshold > p.GoodThreshold {
		return eris.Errorf("config: pricing great_threshold must be in (0,good_threshold], got %v", p.GreatThreshold)
	}
	rate, ok := p.Rates[DefaultRateKey]
	if !ok {
		return eris.New("config: pricing rates must contain a default entry")
	}
	if rate <= 0 {
		return eris.Errorf("config: pricing default rate must be positive, got %v", rate)
	}
	return nil
}
