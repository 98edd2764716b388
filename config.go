package distributedbreaker

import (
	"go.uber.org/zap"

	"github.com/vnykmshr/distributedbreaker/internal/breakerconfig"
)

// ConfigFile is a hot-reloadable, YAML-backed source of per-breaker
// settings and feature flags.
type ConfigFile = breakerconfig.File

// BreakerConfig is one breaker's file-configurable settings.
type BreakerConfig = breakerconfig.BreakerConfig

// WatchConfig watches the YAML file at path and applies it to every
// breaker already registered in registry (by name) whenever the file
// changes, including toggling each breaker's enabled flag (SetEnabled) as
// a fleet-wide kill switch. Breakers named in the file but not yet
// registered are skipped; they pick up the file's settings on the first
// file change after GetOrCreate registers them.
func WatchConfig(path string, registry *Registry, log *zap.Logger) (*breakerconfig.FileSource, error) {
	src, err := breakerconfig.NewFileSource(path, log)
	if err != nil {
		return nil, err
	}
	applyConfig(registry, src.Current())
	src.OnChange(func(f breakerconfig.File) {
		applyConfig(registry, f)
	})
	return src, nil
}

func applyConfig(registry *Registry, f breakerconfig.File) {
	for name, cfg := range f.Breakers {
		cb, ok := registry.Get(name)
		if !ok {
			continue
		}
		cb.SetEnabled(cfg.Enabled)
		_ = cb.UpdateSettings(SettingsUpdate{
			WindowSeconds:          nonZeroIntPtr(cfg.WindowSeconds),
			MinRequests:            nonZeroIntPtr(cfg.MinRequests),
			OpenThreshold:          nonZeroFloatPtr(cfg.OpenThreshold),
			CloseThreshold:         nonZeroFloatPtr(cfg.CloseThreshold),
			RecoveryTimeoutSeconds: nonZeroIntPtr(cfg.RecoveryTimeoutSeconds),
			ReadDelaySeconds:       nonZeroIntPtr(cfg.ReadDelaySeconds),
		})
	}
}

func nonZeroIntPtr(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func nonZeroFloatPtr(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}
