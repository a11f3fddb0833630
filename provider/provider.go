package provider

import (
	"context"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Provider is the base interface all providers implement.
type Provider interface {
	// Name returns the provider's unique name.
	Name() string
	// IsAvailable checks if the provider is ready to handle requests.
	IsAvailable(ctx context.Context) bool
}

// Factory creates a provider instance from a raw config map.
type Factory[T Provider] func(cfg map[string]any) (T, error)

// DecodeConfig decodes a factory config map into out, accepting both
// "1s"-style durations and loosely typed scalars as produced by viper.
func DecodeConfig(cfg map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("provider: decode config: %w", err)
	}
	return nil
}
