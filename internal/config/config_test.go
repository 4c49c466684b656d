package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawarehouse/dw-parquet-go/pqbridge"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg := FromViper(viper.New())

	assert.Equal(t, "", cfg.Storage.Bucket)
	assert.Equal(t, pqbridge.DefaultRegion, cfg.Storage.Region)
	assert.Equal(t, pqbridge.DefaultExtension, cfg.Storage.Extension)
	assert.Equal(t, pqbridge.DefaultConcurrency, cfg.Storage.Concurrency)
	assert.False(t, cfg.Storage.UsePathStyle)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestFromViper_Environment(t *testing.T) {
	t.Setenv("PQBRIDGE_BUCKET", "lake")
	t.Setenv("AWS_REGION", "eu-central-1")
	t.Setenv("PQBRIDGE_ENDPOINT", "http://localhost:9000")
	t.Setenv("PQBRIDGE_PATH_STYLE", "true")
	t.Setenv("AWS_ACCESS_KEY_ID", "minio")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "minio123")
	t.Setenv("PQBRIDGE_SCRATCH_DIR", "/var/tmp/pq")
	t.Setenv("PQBRIDGE_CONCURRENCY", "8")
	t.Setenv("LOG_LEVEL", "debug")

	v := viper.New()
	v.AutomaticEnv()
	cfg := FromViper(v)

	assert.Equal(t, StorageConfig{
		Bucket:       "lake",
		Region:       "eu-central-1",
		Endpoint:     "http://localhost:9000",
		AccessKey:    "minio",
		SecretKey:    "minio123",
		UsePathStyle: true,
		ScratchDir:   "/var/tmp/pq",
		Extension:    pqbridge.DefaultExtension,
		Concurrency:  8,
	}, cfg.Storage)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestStorageConfig_BridgeConfig(t *testing.T) {
	s := StorageConfig{
		Bucket:       "lake",
		Region:       "us-west-2",
		Endpoint:     "http://minio:9000",
		AccessKey:    "a",
		SecretKey:    "s",
		SessionToken: "t",
		UsePathStyle: true,
		ScratchDir:   t.TempDir(),
		Extension:    ".parquet",
		Concurrency:  2,
	}

	bc := s.BridgeConfig()
	assert.Equal(t, pqbridge.Config{
		Bucket:       "lake",
		Endpoint:     "http://minio:9000",
		AccessKey:    "a",
		SecretKey:    "s",
		SessionToken: "t",
		Region:       "us-west-2",
		UsePathStyle: true,
	}, bc)

	assert.Len(t, s.Options(), 3)
	s.ScratchDir = ""
	assert.Len(t, s.Options(), 2)
}

func TestLoad_IsMemoized(t *testing.T) {
	first := Load()
	require.NotNil(t, first)
	assert.Same(t, first, Load())
}
