package numerics

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk representation of the numeric settings, loadable from
// a TOML file. Zero fields fall back to the defaults.
type Config struct {
	Epsilon  float64 `toml:"epsilon"`
	FeasTol  float64 `toml:"feastol"`
	Infinity float64 `toml:"infinity"`

	GrowFac  float64 `toml:"grow_factor"`
	GrowInit int     `toml:"grow_init"`
}

// LoadConfig reads a TOML tolerance configuration from path.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Tolerances converts the config into a validated Tolerances value.
func (c Config) Tolerances() (*Tolerances, error) {
	t := Default()
	if c.Epsilon != 0 {
		t.Epsilon = c.Epsilon
	}
	if c.FeasTol != 0 {
		t.FeasTol = c.FeasTol
	}
	if c.Infinity != 0 {
		t.Infinity = c.Infinity
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Grow converts the config into a growth policy.
func (c Config) Grow() GrowCalc {
	g := DefaultGrow()
	if c.GrowFac > 1 {
		g.Fac = c.GrowFac
	}
	if c.GrowInit > 0 {
		g.Init = c.GrowInit
	}
	return g
}
