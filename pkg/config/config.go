// Package config loads placement configuration from TOML files.
//
// A file overrides any subset of [place.DefaultConfig]:
//
//	utilization = 0.6
//	bisector = "fm"
//
//	[partition]
//	largest_final_size = 30
//
//	[solver]
//	tol = 1e-4
//	precondition = true
//
//	[density]
//	bins = 40
//	spread_y = true
//
// Unknown keys are rejected so that typos do not silently fall back to
// defaults.
package config

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/gordian/pkg/errors"
	"github.com/matzehuels/gordian/pkg/place"
)

// Load reads the file at path on top of the defaults and validates it.
func Load(path string) (place.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return place.Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
		}
		return place.Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML text on top of the defaults and validates the result.
func Parse(data []byte) (place.Config, error) {
	cfg := place.DefaultConfig()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return place.Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return place.Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return place.Config{}, err
	}
	return cfg, nil
}

// Write encodes cfg as TOML.
func Write(w io.Writer, cfg place.Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
