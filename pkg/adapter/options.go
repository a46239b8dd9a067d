package adapter

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// DecodeOptions decodes the string options of a connection config into an
// engine specific settings struct tagged with `mapstructure`. Strings are
// converted to the field types ("true", "30s", "a,b"); unknown keys are an error.
func DecodeOptions(opts map[string]string, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to build options decoder: %w", err)
	}
	if len(opts) == 0 {
		return nil
	}
	if err := dec.Decode(opts); err != nil {
		return fmt.Errorf("invalid connection options: %w", err)
	}
	return nil
}
