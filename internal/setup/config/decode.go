package config

import (
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/v2"
	"github.com/modmail-dev/modmail/pkg/utils"
)

// unmarshalConf mirrors koanf's default decoder with a duration hook that also accepts days and weeks.
func unmarshalConf() koanf.UnmarshalConf {
	return koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				stringToDurationHook,
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			WeaklyTypedInput: true,
		},
	}
}

// stringToDurationHook parses Go durations such as "1h30m" as well as "7d" or "2w1d".
// An empty string or "0" disables the setting.
func stringToDurationHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeFor[time.Duration]() {
		return data, nil
	}

	raw, _ := data.(string)
	if raw == "" || raw == "0" {
		return time.Duration(0), nil
	}

	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}

	return utils.ParseDuration(raw)
}
