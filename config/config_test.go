package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/videostream/pkg/tlsutil"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "bot.json", `{
		"endpoint": {"host": "video.example.com", "appkey": "abc123"},
		"channel": {"name": "lobby-camera", "input_buffer": 64}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	want := &Config{
		Endpoint: Endpoint{Host: "video.example.com", Port: "443", AppKey: "abc123"},
		Channel:  ChannelConfig{Name: "lobby-camera", InputBuffer: 64, HistoryCount: 1},
		TLS:      tlsutil.ClientConfig{MinVersion: "1.2"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "bot.yaml", `
endpoint:
  host: video.example.com
  port: "8443"
  appkey: abc123
channel:
  name: lobby-camera
logging:
  nats_url: nats://localhost:4222
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "8443", cfg.Endpoint.Port)
	assert.Equal(t, "nats://localhost:4222", cfg.Logging.NATSURL)
	assert.Equal(t, "wss://video.example.com:8443/v2?appkey=abc123", cfg.Endpoint.URL())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestParse_SchemaRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte(`{
		"endpoint": {"host": "h", "appkey": "k"},
		"channel": {"name": "c"},
		"surprise": true
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation failed")
}

func TestParse_SchemaRejectsMissingRequired(t *testing.T) {
	_, err := Parse([]byte(`{"endpoint": {"host": "h", "appkey": "k"}}`))
	assert.Error(t, err)
}

func TestValidate_ChannelWhitespace(t *testing.T) {
	cfg := &Config{
		Endpoint: Endpoint{Host: "h", AppKey: "k"},
		Channel:  ChannelConfig{Name: "bad channel"},
	}
	cfg.ApplyDefaults()
	assert.Error(t, cfg.Validate())
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{
		Endpoint: Endpoint{Host: "h", AppKey: "k"},
		Channel:  ChannelConfig{Name: "c"},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, DefaultPort, cfg.Endpoint.Port)
	assert.Equal(t, DefaultInputBuffer, cfg.Channel.InputBuffer)
	assert.Equal(t, DefaultHistoryCount, cfg.Channel.HistoryCount)
	assert.Equal(t, "1.2", cfg.TLS.MinVersion)
}
