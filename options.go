package layerstore

import (
	"os"

	"github.com/sahib/config"
)

// Options configures a Store at construction time. The zero value is
// not valid; use DefaultOptions and override as needed.
type Options struct {
	// PageSize is the page granularity in bytes.
	PageSize uint32

	// MaxPages bounds resident page count.
	MaxPages uint32

	// CreateIfMissing controls whether Open may create a new backend.
	CreateIfMissing bool

	// StrictSizeEnforcement, if non-zero, rejects any I/O whose range
	// extends past this byte offset. Zero means unset.
	StrictSizeEnforcement uint64

	// FlushOnClose flushes the whole store before closing the backend.
	FlushOnClose bool

	// AutoFlushOnEvict flushes a dirty page before it is evicted.
	AutoFlushOnEvict bool
}

// DefaultOptions returns the documented default configuration.
func DefaultOptions() Options {
	return Options{
		PageSize:         1 << 20,
		MaxPages:         100,
		CreateIfMissing:  true,
		FlushOnClose:     true,
		AutoFlushOnEvict: true,
	}
}

// ConfigDefaults registers this module's option schema with a
// sahib/config config.Config, the way defaults.go/defaults_v0.go do
// for brig's daemon configuration. This lets cmd/layerstore load
// options from a YAML file instead of only programmatic construction.
func ConfigDefaults() config.DefaultMapping {
	return config.DefaultMapping{
		"pageSize": config.DefaultEntry{
			Default:      int64(1 << 20),
			NeedsRestart: true,
			Docs:         "Page granularity in bytes.",
		},
		"maxPages": config.DefaultEntry{
			Default:      int64(100),
			NeedsRestart: true,
			Docs:         "Maximum number of resident pages.",
		},
		"createIfMissing": config.DefaultEntry{
			Default: true,
			Docs:    "Whether opening a missing backend creates it.",
		},
		"strictSizeEnforcement": config.DefaultEntry{
			Default: int64(0),
			Docs:    "Upper bound on addressable byte offset; 0 means unset.",
		},
		"flushOnClose": config.DefaultEntry{
			Default: true,
			Docs:    "Flush all dirty pages before closing the backend.",
		},
		"autoFlushOnEvict": config.DefaultEntry{
			Default: true,
			Docs:    "Flush a dirty page before it is evicted from the cache.",
		},
	}
}

// OptionsFromConfig reads an Options value out of a config.Config
// previously populated with ConfigDefaults.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PageSize:              uint32(cfg.Int("pageSize")),
		MaxPages:              uint32(cfg.Int("maxPages")),
		CreateIfMissing:       cfg.Bool("createIfMissing"),
		StrictSizeEnforcement: uint64(cfg.Int("strictSizeEnforcement")),
		FlushOnClose:          cfg.Bool("flushOnClose"),
		AutoFlushOnEvict:      cfg.Bool("autoFlushOnEvict"),
	}
}

// LoadOptionsFromYAML reads Options from a YAML file at path, the way
// repo/hints/hints.go loads a config.Config via config.NewYamlDecoder
// and config.Open with config.StrictnessWarn. Missing keys fall back
// to ConfigDefaults' defaults.
func LoadOptionsFromYAML(path string) (Options, error) {
	fd, err := os.Open(path)
	if err != nil {
		return Options{}, err
	}
	defer fd.Close()

	cfg, err := config.Open(config.NewYamlDecoder(fd), ConfigDefaults(), config.StrictnessWarn)
	if err != nil {
		return Options{}, err
	}

	return OptionsFromConfig(cfg), nil
}
