package settings

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	KeyClientId       = "ClientId"
	KeyClientSecret   = "ClientSecret"
	KeyTenantId       = "TenantId"
	KeySubscriptionId = "SubscriptionId"
	KeyEnvKeys        = "HUBOT_ENV_KEYS"

	// Function app settings files keep everything below "Values"
	valuesSection = "Values"
)

type Source interface {
	GetString(key string) string
}

// Loader produces a fresh view of the configuration. It is called once per redeploy.
type Loader interface {
	Load(ctx context.Context) (Source, error)
}

type fileLoader struct {
	configFile string
}

// NewLoader returns a loader that builds a new viper instance on every Load, reading
// configFile (if any) and the process environment.
func NewLoader(configFile string) *fileLoader {
	return &fileLoader{configFile: configFile}
}

func (l *fileLoader) Load(ctx context.Context) (Source, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)

		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read settings file %s", l.configFile)
		}
	}

	return &source{v: v}, nil
}

type source struct {
	v *viper.Viper
}

// GetString looks the key up verbatim in the environment first, since setting names
// like "ClientId" are case sensitive there, then falls back to viper (which uppercases
// env lookups) and finally to the "Values" section of a function app settings file.
func (s *source) GetString(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	if s.v.IsSet(key) {
		return s.v.GetString(key)
	}

	return s.v.GetString(valuesSection + "." + key)
}

// MapSource is a fixed set of settings.
type MapSource map[string]string

func (m MapSource) GetString(key string) string {
	return m[key]
}

// StaticLoader always returns the same source.
type StaticLoader struct {
	Source Source
}

func (l StaticLoader) Load(context.Context) (Source, error) {
	return l.Source, nil
}

type overlaySource struct {
	top  MapSource
	base Source
}

// Overlay prefers keys present in top, even with an empty value, and falls back to base.
func Overlay(top MapSource, base Source) Source {
	return &overlaySource{top: top, base: base}
}

func (s *overlaySource) GetString(key string) string {
	if value, ok := s.top[key]; ok {
		return value
	}
	return s.base.GetString(key)
}
