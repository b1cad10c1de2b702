// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads authd configuration from defaults, an optional YAML
// file, the environment and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"net"
	"net/url"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"

	"github.com/holomush/authd/internal/auth"
)

// Environment names.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Config is the full authd configuration.
type Config struct {
	Env      string         `koanf:"env" yaml:"env" validate:"oneof=production development" jsonschema:"enum=production,enum=development,description=Deployment environment; selects the session reaper default interval"`
	Server   ServerConfig   `koanf:"server" yaml:"server"`
	Database DatabaseConfig `koanf:"database" yaml:"database"`
	Session  SessionConfig  `koanf:"session" yaml:"session"`
	Hasher   HasherConfig   `koanf:"hasher" yaml:"hasher"`
	Log      LogConfig      `koanf:"log" yaml:"log"`
	Metrics  MetricsConfig  `koanf:"metrics" yaml:"metrics"`
}

// ServerConfig configures the public HTTP listener.
type ServerConfig struct {
	Addr            string        `koanf:"addr" yaml:"addr" validate:"required,listen_addr" jsonschema:"description=HTTP listen address"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0" jsonschema:"type=string,description=Graceful shutdown deadline (Go duration)"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL      string `koanf:"url" yaml:"url" validate:"required" jsonschema:"description=PostgreSQL connection URL"`
	MaxConns int32  `koanf:"max_conns" yaml:"max_conns" validate:"gte=1" jsonschema:"minimum=1"`
}

// SessionConfig configures session cookies and expiry.
type SessionConfig struct {
	CookieName    string        `koanf:"cookie_name" yaml:"cookie_name" validate:"required" jsonschema:"description=Name of the session cookie"`
	CookieSecure  bool          `koanf:"cookie_secure" yaml:"cookie_secure" jsonschema:"description=Set the Secure attribute on the session cookie"`
	InactivityTTL time.Duration `koanf:"inactivity_ttl" yaml:"inactivity_ttl" validate:"gt=0" jsonschema:"type=string,description=Sliding inactivity window (Go duration)"`
	ReapInterval  time.Duration `koanf:"reap_interval" yaml:"reap_interval" validate:"gte=0" jsonschema:"type=string,description=Expired session sweep interval; 0 uses the environment default"`
}

// HasherConfig sizes the password hash pool and its Argon2id parameters.
type HasherConfig struct {
	Workers     int    `koanf:"workers" yaml:"workers" validate:"gte=1" jsonschema:"minimum=1"`
	Queue       int    `koanf:"queue" yaml:"queue" validate:"gte=0" jsonschema:"minimum=0"`
	MemoryKiB   uint32 `koanf:"memory_kib" yaml:"memory_kib" validate:"gte=8" jsonschema:"minimum=8"`
	Iterations  uint32 `koanf:"iterations" yaml:"iterations" validate:"gte=1" jsonschema:"minimum=1"`
	Parallelism uint8  `koanf:"parallelism" yaml:"parallelism" validate:"gte=1" jsonschema:"minimum=1,maximum=255"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string `koanf:"format" yaml:"format" validate:"oneof=json text" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" yaml:"level" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// MetricsConfig configures the observability listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" yaml:"addr" validate:"omitempty,listen_addr" jsonschema:"description=Metrics and health probe listen address; empty disables"`
}

// Default returns the built-in configuration.
func Default() Config {
	params := auth.DefaultArgon2Params()
	return Config{
		Env: EnvProduction,
		Server: ServerConfig{
			Addr:            "0.0.0.0:8000",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{MaxConns: 10},
		Session: SessionConfig{
			CookieName:    "id",
			InactivityTTL: auth.DefaultInactivityTTL,
		},
		Hasher: HasherConfig{
			Workers:     runtime.NumCPU(),
			Queue:       64,
			MemoryKiB:   params.MemoryKiB,
			Iterations:  params.Iterations,
			Parallelism: params.Parallelism,
		},
		Log:     LogConfig{Format: "json", Level: "info"},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
	}
}

// ReapInterval returns the configured sweep interval, falling back to the
// environment default when unset.
func (c *Config) ReapInterval() time.Duration {
	if c.Session.ReapInterval > 0 {
		return c.Session.ReapInterval
	}
	if c.Env == EnvDevelopment {
		return auth.DefaultReapIntervalDevelopment
	}
	return auth.DefaultReapIntervalProduction
}

// Argon2Params returns the hasher parameters with the default salt and key lengths.
func (c *Config) Argon2Params() auth.Argon2Params {
	params := auth.DefaultArgon2Params()
	params.MemoryKiB = c.Hasher.MemoryKiB
	params.Iterations = c.Hasher.Iterations
	params.Parallelism = c.Hasher.Parallelism
	return params
}

var configValidator = sync.OnceValues(newConfigValidator)

func newConfigValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
	})
	// Port 0 is allowed so tests can bind ephemeral ports.
	if err := v.RegisterValidation("listen_addr", validListenAddr); err != nil {
		return nil, oops.Code("CONFIG_VALIDATOR_FAILED").
			With("tag", "listen_addr").
			Wrap(err)
	}
	return v, nil
}

func validListenAddr(fl validator.FieldLevel) bool {
	_, _, err := net.SplitHostPort(fl.Field().String())
	return err == nil
}

// Validate checks required fields and ranges. The error lists every
// offending key.
func (c *Config) Validate() error {
	v, err := configValidator()
	if err != nil {
		return err
	}

	err = v.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	keys := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		keys = append(keys, fieldKey(fe)+" ("+fe.Tag()+")")
	}
	return oops.Code("CONFIG_INVALID").
		With("fields", keys).
		Errorf("invalid configuration: %s", strings.Join(keys, ", "))
}

func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// Redacted returns a copy with the database password masked.
func (c Config) Redacted() Config {
	if u, err := url.Parse(c.Database.URL); err == nil && u.User != nil {
		c.Database.URL = u.Redacted()
	}
	return c
}
