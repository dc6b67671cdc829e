package config

import (
	"fmt"
	"strconv"
	"time"
)

// EnvPrefix is prepended to every environment variable the loader reads
const EnvPrefix = "HLSFILTER_"

type lookupFunc func(string) (string, bool)

// env reads typed values and remembers the first malformed one
type env struct {
	lookup lookupFunc
	err    error
}

func (e *env) get(key string) (string, bool) {
	v, ok := e.lookup(EnvPrefix + key)
	return v, ok && v != ""
}

func (e *env) fail(key, v string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("%s%s=%q: %w", EnvPrefix, key, v, err)
	}
}

func (e *env) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *env) num(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *env) num64(key string, dst *int64) {
	if v, ok := e.get(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *env) flag(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (e *env) float(key string, dst *float64) {
	if v, ok := e.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (e *env) duration(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = d
	}
}

func applyEnv(cfg *Config, lookup lookupFunc) error {
	e := &env{lookup: lookup}
	e.str("LISTEN", &cfg.Listen)
	e.str("LOG_LEVEL", &cfg.Log.Level)

	e.duration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	e.duration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	e.duration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	e.duration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	e.num64("SERVER_MAX_BODY_BYTES", &cfg.Server.MaxBodyBytes)

	e.flag("RATELIMIT_ENABLED", &cfg.RateLimit.Enabled)
	e.num("RATELIMIT_REQUESTS", &cfg.RateLimit.Requests)
	e.duration("RATELIMIT_WINDOW", &cfg.RateLimit.Window)

	e.str("CACHE_REDIS_ADDR", &cfg.Cache.RedisAddr)
	e.str("CACHE_PASSWORD", &cfg.Cache.Password)
	e.num("CACHE_DB", &cfg.Cache.DB)
	e.duration("CACHE_TTL", &cfg.Cache.TTL)

	e.flag("TELEMETRY_ENABLED", &cfg.Telemetry.Enabled)
	e.str("TELEMETRY_EXPORTER", &cfg.Telemetry.Exporter)
	e.str("TELEMETRY_ENDPOINT", &cfg.Telemetry.Endpoint)
	e.float("TELEMETRY_SAMPLING_RATE", &cfg.Telemetry.SamplingRate)
	e.str("TELEMETRY_ENVIRONMENT", &cfg.Telemetry.Environment)
	return e.err
}
