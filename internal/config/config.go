// Package config loads pqbridge settings from the environment and an
// optional .env file.
package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/datawarehouse/dw-parquet-go/pqbridge"
)

type Config struct {
	Storage StorageConfig
	Log     LogConfig
}

type StorageConfig struct {
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	SessionToken string
	UsePathStyle bool
	ScratchDir   string
	Extension    string
	Concurrency  int
}

type LogConfig struct {
	Level string
}

var (
	once     sync.Once
	instance *Config
)

// Load reads the configuration once per process.
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.New()
		v.AutomaticEnv()
		instance = FromViper(v)
	})

	return instance
}

// FromViper builds a Config from v, applying defaults first.
func FromViper(v *viper.Viper) *Config {
	v.SetDefault("AWS_REGION", pqbridge.DefaultRegion)
	v.SetDefault("PQBRIDGE_PATH_STYLE", false)
	v.SetDefault("PQBRIDGE_EXTENSION", pqbridge.DefaultExtension)
	v.SetDefault("PQBRIDGE_CONCURRENCY", pqbridge.DefaultConcurrency)
	v.SetDefault("LOG_LEVEL", "info")

	return &Config{
		Storage: StorageConfig{
			Bucket:       v.GetString("PQBRIDGE_BUCKET"),
			Region:       v.GetString("AWS_REGION"),
			Endpoint:     v.GetString("PQBRIDGE_ENDPOINT"),
			AccessKey:    v.GetString("AWS_ACCESS_KEY_ID"),
			SecretKey:    v.GetString("AWS_SECRET_ACCESS_KEY"),
			SessionToken: v.GetString("AWS_SESSION_TOKEN"),
			UsePathStyle: v.GetBool("PQBRIDGE_PATH_STYLE"),
			ScratchDir:   v.GetString("PQBRIDGE_SCRATCH_DIR"),
			Extension:    v.GetString("PQBRIDGE_EXTENSION"),
			Concurrency:  v.GetInt("PQBRIDGE_CONCURRENCY"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}
}

// BridgeConfig converts the storage settings into a pqbridge.Config.
func (s StorageConfig) BridgeConfig() pqbridge.Config {
	return pqbridge.Config{
		Bucket:       s.Bucket,
		Endpoint:     s.Endpoint,
		AccessKey:    s.AccessKey,
		SecretKey:    s.SecretKey,
		SessionToken: s.SessionToken,
		Region:       s.Region,
		UsePathStyle: s.UsePathStyle,
	}
}

// Options returns the bridge options implied by the storage settings.
func (s StorageConfig) Options() []pqbridge.Option {
	opts := []pqbridge.Option{
		pqbridge.WithExtension(s.Extension),
		pqbridge.WithConcurrency(s.Concurrency),
	}
	if s.ScratchDir != "" {
		opts = append(opts, pqbridge.WithScratchDir(s.ScratchDir))
	}
	return opts
}
