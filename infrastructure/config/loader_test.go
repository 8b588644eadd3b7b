package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/config"
)

type sampleConfig struct {
	Name    string        `yaml:"name"`
	Port    int           `env:"SAMPLE_PORT"    yaml:"port"`
	Timeout time.Duration `env:"SAMPLE_TIMEOUT" yaml:"timeout"`
	Debug   bool          `env:"SAMPLE_DEBUG"   yaml:"debug"`
	Nested  struct {
		Origins []string `env:"SAMPLE_ORIGINS" yaml:"origins"`
	} `yaml:"nested"`
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadWithDefaults_EnvBeatsFileAndDefaults(t *testing.T) {
	path := writeConfig(t, "name: from-file\nport: 1000\n")
	t.Setenv("SAMPLE_PORT", "2000")
	t.Setenv("SAMPLE_TIMEOUT", "3s")
	t.Setenv("SAMPLE_DEBUG", "yes")
	t.Setenv("SAMPLE_ORIGINS", "a.example, b.example")

	cfg, err := config.LoadWithDefaults[sampleConfig](path, func(c *sampleConfig) {
		c.Port = 9999
		if c.Timeout == 0 {
			c.Timeout = time.Second
		}
	})
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Name)
	assert.Equal(t, 2000, cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.True(t, cfg.Debug)
	assert.Equal(t, []string{"a.example", "b.example"}, cfg.Nested.Origins)
}

func TestLoad_MissingFileUsesZeroValue(t *testing.T) {
	cfg, err := config.Load[sampleConfig](filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Name)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "port: [unterminated\n")

	_, err := config.Load[sampleConfig](path)
	require.Error(t, err)
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, "config.yml", config.GetConfigPath("config.yml"))

	t.Setenv("CONFIG_PATH", "/etc/metadata-search.yml")
	assert.Equal(t, "/etc/metadata-search.yml", config.GetConfigPath("config.yml"))
}

func TestValidateURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		wantErr bool
	}{
		{"http://127.0.0.1:9201", false},
		{"https://es.internal", false},
		{"", true},
		{"127.0.0.1:9201", true},
		{"ftp://es.internal", true},
	}

	for _, tt := range tests {
		err := config.ValidateURL("elasticsearch.url", tt.raw)
		if tt.wantErr {
			assert.Error(t, err, tt.raw)
			continue
		}
		assert.NoError(t, err, tt.raw)
	}
}

func TestLoad_MalformedEnvValue(t *testing.T) {
	tests := map[string]struct {
		name  string
		value string
	}{
		"port":    {name: "SAMPLE_PORT", value: "eighty"},
		"timeout": {name: "SAMPLE_TIMEOUT", value: "5 minutes"},
		"debug":   {name: "SAMPLE_DEBUG", value: "sometimes"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(tt.name, tt.value)

			_, err := config.Load[sampleConfig](filepath.Join(t.TempDir(), "absent.yml"))

			var verr *config.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.name, verr.Field)
		})
	}
}
