// Package store persists parameter values across restarts.
package store

import (
	"context"
	"fmt"
	"math"
	"strconv"
)

// Store keeps a flat name -> value map.
type Store interface {
	// Load returns every stored value. An empty store returns an empty map.
	Load(ctx context.Context) (map[string]float64, error)
	// Save stores a single value.
	Save(ctx context.Context, name string, value float64) error
	// Replace discards everything stored and writes values.
	Replace(ctx context.Context, values map[string]float64) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendNone   = "none"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// DefaultRedisKey is the hash holding the parameters.
const DefaultRedisKey = "solar-tracker:params"

// Options selects and configures a backend.
type Options struct {
	Backend       string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}

// Open creates the configured store. BackendNone (or "") returns nil.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendFile:
		if opts.Path == "" {
			return nil, fmt.Errorf("file store requires a path")
		}
		return NewFileStore(opts.Path), nil
	case BackendRedis:
		s := NewRedisStore(opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.RedisKey)
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case BackendMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseValues(raw map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	for name, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("stored value %s=%q: %w", name, s, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("stored value %s=%q is not finite", name, s)
		}
		out[name] = v
	}
	return out, nil
}

func copyValues(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
