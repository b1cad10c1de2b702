// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every authd environment variable. Nested keys use a
// double underscore, so AUTHD_SESSION__INACTIVITY_TTL sets session.inactivity_ttl.
const EnvPrefix = "AUTHD_"

// DatabaseURLEnv is read as database.url when AUTHD_DATABASE__URL is unset.
const DatabaseURLEnv = "DATABASE_URL"

// Sources lists where Load reads configuration from besides the defaults.
type Sources struct {
	// File is an optional YAML file path.
	File string
	// Flags are applied last. Only flags named in FlagKeys are read.
	Flags *pflag.FlagSet
	// FlagKeys maps flag names to config keys, e.g. "listen" to "server.addr".
	FlagKeys map[string]string
}

// Load builds a Config from defaults, then Sources.File, then the
// environment, then Sources.Flags. It does not call Validate.
func Load(src Sources) (*Config, error) {
	ko := koanf.New(".")

	if err := ko.Load(confmap.Provider(defaultMap(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}

	if src.File != "" {
		data, err := os.ReadFile(src.File)
		if err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", src.File).Wrap(err)
		}
		if err := ValidateYAML(data); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("source", src.File).Wrap(err)
		}
		if err := ko.Load(file.Provider(src.File), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", src.File).Wrap(err)
		}
	}

	bareDB := env.Provider(DatabaseURLEnv, ".", func(k string) string {
		if k != DatabaseURLEnv {
			return ""
		}
		return "database.url"
	})
	if err := ko.Load(bareDB, nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}
	if err := ko.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if src.Flags != nil {
		flags := posflag.ProviderWithFlag(src.Flags, ".", ko, func(f *pflag.Flag) (string, any) {
			key, ok := src.FlagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(src.Flags, f)
		})
		if err := ko.Load(flags, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := ko.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return &cfg, nil
}

// envKey maps AUTHD_HASHER__MEMORY_KIB to hasher.memory_kib.
func envKey(k string) string {
	k = strings.TrimPrefix(k, EnvPrefix)
	return strings.ToLower(strings.ReplaceAll(k, "__", "."))
}

func defaultMap() map[string]any {
	d := Default()
	return map[string]any{
		"env":                     d.Env,
		"server.addr":             d.Server.Addr,
		"server.shutdown_timeout": d.Server.ShutdownTimeout,
		"database.url":            d.Database.URL,
		"database.max_conns":      d.Database.MaxConns,
		"session.cookie_name":     d.Session.CookieName,
		"session.cookie_secure":   d.Session.CookieSecure,
		"session.inactivity_ttl":  d.Session.InactivityTTL,
		"session.reap_interval":   d.Session.ReapInterval,
		"hasher.workers":          d.Hasher.Workers,
		"hasher.queue":            d.Hasher.Queue,
		"hasher.memory_kib":       d.Hasher.MemoryKiB,
		"hasher.iterations":       d.Hasher.Iterations,
		"hasher.parallelism":      d.Hasher.Parallelism,
		"log.format":              d.Log.Format,
		"log.level":               d.Log.Level,
		"metrics.addr":            d.Metrics.Addr,
	}
}
