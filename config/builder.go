package config

import (
	"errors"
	"sort"

	"github.com/jpalmerr/procedurelab"
)

// BuildOptions converts parsed configuration into Lab options.
//
// The logger is not included; callers add [procedurelab.WithLogger] with a
// logger built from [Config.Log].
func BuildOptions(cfg *Config) ([]procedurelab.Option, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	opts := []procedurelab.Option{
		procedurelab.WithPort(cfg.Port),
		procedurelab.WithMaxFibN(cfg.MaxFibN),
	}

	if cfg.Title != "" {
		opts = append(opts, procedurelab.WithTitle(cfg.Title))
	}

	if cfg.ContentSecurityPolicy != "" {
		opts = append(opts, procedurelab.WithContentSecurityPolicy(cfg.ContentSecurityPolicy))
	}

	// sort keys for deterministic seeding order
	keys := make([]string, 0, len(cfg.Items))
	for k := range cfg.Items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		opts = append(opts, procedurelab.WithItem(k, cfg.Items[k]))
	}

	return opts, nil
}
