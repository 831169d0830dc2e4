package config

import (
	"os"
	"strings"
	"testing"
)

// writeTempConfig creates a minimal configuration file required for LoadConfig
// and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

const minimalConfig = `tradehub:
  name: "TestApp"
  version: "1.0"
hub:
  url: "wss://hub.example.com/socket"
  api_key: "abc123"
web:
  port: 9000
  max_colors: 10
`

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, minimalConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Tradehub.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Tradehub.Name)
	}
	if cfg.Web.Port != 9000 {
		t.Errorf("unexpected port: %d", cfg.Web.Port)
	}
	if cfg.Web.MaxColors != 10 {
		t.Errorf("unexpected max colors: %d", cfg.Web.MaxColors)
	}
	// Defaults fill in whatever the file leaves out.
	if cfg.Web.Precision != 8 {
		t.Errorf("unexpected default precision: %d", cfg.Web.Precision)
	}
	if cfg.Web.GraphDays != 7 {
		t.Errorf("unexpected default graph days: %d", cfg.Web.GraphDays)
	}
	if cfg.Hub.TradedChannel != "traded_signal" {
		t.Errorf("unexpected default traded channel: %s", cfg.Hub.TradedChannel)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("HUB_API_KEY", "env-key")
	t.Setenv("WEB_PASSWORD", "env-pass")

	path := writeTempConfig(t, minimalConfig)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Hub.APIKey != "env-key" {
		t.Errorf("expected env override for hub api key, got %s", cfg.Hub.APIKey)
	}
	if cfg.Web.Password != "env-pass" {
		t.Errorf("expected env override for web password, got %s", cfg.Web.Password)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "tradehub:\n  version: \"1.0\"\nhub:\n  url: \"wss://h\"\n",
			wantErr: "tradehub.name",
		},
		{
			name:    "missing hub url",
			content: "tradehub:\n  name: \"x\"\n  version: \"1.0\"\n",
			wantErr: "hub.url",
		},
		{
			name: "notifications without smtp host",
			content: minimalConfig + `notifications:
  enabled: true
  from: "bot@example.com"
  to: ["me@example.com"]
`,
			wantErr: "smtp_host",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := writeTempConfig(t, c.content)
			_, err := LoadConfig(path)
			if err == nil {
				t.Fatalf("expected validation error containing %q", c.wantErr)
			}
			if !strings.Contains(err.Error(), c.wantErr) {
				t.Errorf("error %q does not mention %q", err, c.wantErr)
			}
		})
	}
}
