package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TWITCH_NICK", "TWITCH_OAUTH", "TWITCH_CHANNEL", "TWITCH_ADDR",
		"S3_BUCKET", "S3_REGION", "AWS_ROLE_ARN", "AWS_WEB_IDENTITY_TOKEN_FILE",
		"S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "S3_ENDPOINT", "HEALTH_ADDR",
	} {
		t.Setenv(key, "")
	}
}

const minimal = `
twitch:
  nick: wildbot
  oauth: abcdefghijklmnopqrstuvwxyz0123
  channel: wild
`

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Twitch.Addr != "irc.chat.twitch.tv:6667" {
		t.Errorf("Addr = %q", cfg.Twitch.Addr)
	}
	if cfg.Twitch.SendInterval() != 333*time.Millisecond {
		t.Errorf("SendInterval() = %v", cfg.Twitch.SendInterval())
	}
	if cfg.Twitch.DialTimeout() != 10*time.Second {
		t.Errorf("DialTimeout() = %v", cfg.Twitch.DialTimeout())
	}
	if cfg.Twitch.ReadTimeout() != 0 {
		t.Errorf("ReadTimeout() = %v, want watchdog off", cfg.Twitch.ReadTimeout())
	}
	if cfg.Recorder.OutputDir != "./data" || cfg.Recorder.BufferSize != 100 {
		t.Errorf("Recorder = %+v", cfg.Recorder)
	}
	if cfg.Health.Addr != ":8080" {
		t.Errorf("Health.Addr = %q", cfg.Health.Addr)
	}
	if cfg.S3.UploadsEnabled() {
		t.Error("uploads enabled without a bucket")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TWITCH_OAUTH", "zyxwvutsrqponmlkjihgfedcba9876")
	t.Setenv("TWITCH_ADDR", "127.0.0.1:6667")
	t.Setenv("HEALTH_ADDR", ":9090")

	cfg, err := Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Twitch.OAuth != "zyxwvutsrqponmlkjihgfedcba9876" {
		t.Errorf("OAuth = %q, want env value", cfg.Twitch.OAuth)
	}
	if cfg.Twitch.Addr != "127.0.0.1:6667" {
		t.Errorf("Addr = %q, want env value", cfg.Twitch.Addr)
	}
	if cfg.Twitch.Nick != "wildbot" {
		t.Errorf("Nick = %q, YAML value lost", cfg.Twitch.Nick)
	}
	if cfg.Health.Addr != ":9090" {
		t.Errorf("Health.Addr = %q", cfg.Health.Addr)
	}
}

func TestLoadEmotes(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, minimal+"  emotes:\n    Kappa: \"25\"\n    PogChamp: \"88\"\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Twitch.Emotes["Kappa"] != "25" || len(cfg.Twitch.Emotes) != 2 {
		t.Errorf("Emotes = %v", cfg.Twitch.Emotes)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"missing nick", "twitch:\n  oauth: x\n  channel: c\n", "twitch.nick"},
		{"missing oauth", "twitch:\n  nick: n\n  channel: c\n", "twitch.oauth"},
		{"missing channel", "twitch:\n  nick: n\n  oauth: x\n", "twitch.channel"},
		{"bucket without region", minimal + "s3:\n  bucket: logs\n", "s3.region"},
		{"role without token file", minimal + "s3:\n  bucket: logs\n  region: us-east-1\n  role_arn: arn:aws:iam::1:role/x\n", "web_identity_token_file"},
		{"key without secret", minimal + "s3:\n  bucket: logs\n  region: us-east-1\n  access_key_id: AKIA\n", "secret_access_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() of missing file succeeded")
	}
}
