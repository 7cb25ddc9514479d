package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg := fromViper(newTestViper())

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 24, cfg.KRS.MaxSKS)
	assert.Equal(t, 4, cfg.KRS.BulkWorkers)
	assert.Equal(t, 10*time.Minute, cfg.Transcript.CacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperEnvOverrides(t *testing.T) {
	t.Setenv("KRS_MAX_SKS", "21")
	t.Setenv("KRS_BULK_WORKERS", "0")
	t.Setenv("ALLOWED_ORIGINS", "https://siakad.example.ac.id, ,http://localhost:3000")
	t.Setenv("TRANSCRIPT_CACHE_TTL", "not-a-duration")

	cfg := fromViper(newTestViper())

	assert.Equal(t, 21, cfg.KRS.MaxSKS)
	assert.Equal(t, 1, cfg.KRS.BulkWorkers)
	assert.Equal(t, []string{"https://siakad.example.ac.id", "http://localhost:3000"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 10*time.Minute, cfg.Transcript.CacheTTL)
}
