package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_MinimalConfig(t *testing.T) {
	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// check defaults applied
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.ShutdownTimeout.Duration() != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout.Duration())
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
	if cfg.MaxFibN != 0 {
		t.Errorf("MaxFibN = %d, want 0", cfg.MaxFibN)
	}
	if len(cfg.Items) != 0 {
		t.Errorf("len(Items) = %d, want 0", len(cfg.Items))
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
title: Security Lab
port: 9090
content_security_policy: "default-src 'none'"
max_fib_n: 5000
shutdown_timeout: 30s

log:
  level: DEBUG
  format: text

items:
  greeting:
    text: hello
    tags: [a, b]
  counter: 3
  flag: true
  nothing: null
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Title != "Security Lab" {
		t.Errorf("Title = %q, want %q", cfg.Title, "Security Lab")
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.ContentSecurityPolicy != "default-src 'none'" {
		t.Errorf("ContentSecurityPolicy = %q", cfg.ContentSecurityPolicy)
	}
	if cfg.MaxFibN != 5000 {
		t.Errorf("MaxFibN = %d, want 5000", cfg.MaxFibN)
	}
	if cfg.ShutdownTimeout.Duration() != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 30s", cfg.ShutdownTimeout.Duration())
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug (lowercased)", cfg.Log.Level)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want text", cfg.Log.Format)
	}
	if len(cfg.Items) != 4 {
		t.Fatalf("len(Items) = %d, want 4", len(cfg.Items))
	}

	greeting, ok := cfg.Items["greeting"].(map[string]any)
	if !ok {
		t.Fatalf("Items[greeting] type = %T, want map[string]any", cfg.Items["greeting"])
	}
	if greeting["text"] != "hello" {
		t.Errorf("greeting.text = %v, want hello", greeting["text"])
	}
	if _, exists := cfg.Items["nothing"]; !exists {
		t.Error("null item should be present")
	}
}

func TestParseTOML_FullConfig(t *testing.T) {
	data := `
title = "TOML Lab"
port = 9191
max_fib_n = 100
shutdown_timeout = "5s"

[log]
level = "warn"

[items]
counter = 7
list = [1, "two", true]

[items.greeting]
text = "hello"

[[items.rows]]
id = 1

[[items.rows]]
id = 2
`
	cfg, err := ParseTOML([]byte(data))
	if err != nil {
		t.Fatalf("ParseTOML() error = %v", err)
	}

	if cfg.Title != "TOML Lab" {
		t.Errorf("Title = %q, want %q", cfg.Title, "TOML Lab")
	}
	if cfg.Port != 9191 {
		t.Errorf("Port = %d, want 9191", cfg.Port)
	}
	if cfg.MaxFibN != 100 {
		t.Errorf("MaxFibN = %d, want 100", cfg.MaxFibN)
	}
	if cfg.ShutdownTimeout.Duration() != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", cfg.ShutdownTimeout.Duration())
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json (default)", cfg.Log.Format)
	}
	if len(cfg.Items) != 4 {
		t.Errorf("len(Items) = %d, want 4", len(cfg.Items))
	}
}

func TestParseTOML_UnknownKey(t *testing.T) {
	_, err := ParseTOML([]byte(`prot = 8080`))
	if err == nil {
		t.Fatal("ParseTOML() expected error for unknown key, got nil")
	}
	if !strings.Contains(err.Error(), "prot") {
		t.Errorf("error = %v, want mention of the unknown key", err)
	}
}

func TestParseTOML_Invalid(t *testing.T) {
	_, err := ParseTOML([]byte(`port = [`))
	if err == nil {
		t.Fatal("ParseTOML() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "failed to parse TOML") {
		t.Errorf("error = %v, want containing 'failed to parse TOML'", err)
	}
}

func TestLoad_SelectsFormatByExtension(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		file     string
		content  string
		wantPort int
	}{
		{"yaml", "lab.yaml", "port: 9001\n", 9001},
		{"yml", "lab.yml", "port: 9002\n", 9002},
		{"toml", "lab.toml", "port = 9003\n", 9003},
		{"toml uppercase", "LAB.TOML", "port = 9004\n", 9004},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", cfg.Port, tt.wantPort)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Load() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("error = %v", err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.ShutdownTimeout.Duration() != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout.Duration())
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	t.Setenv("LAB_TITLE", "From Env")
	t.Setenv("LAB_CSP", "default-src 'self'")

	yaml := `
title: ${LAB_TITLE}
content_security_policy: ${LAB_CSP}; img-src *
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Title != "From Env" {
		t.Errorf("Title = %q, want %q", cfg.Title, "From Env")
	}
	if cfg.ContentSecurityPolicy != "default-src 'self'; img-src *" {
		t.Errorf("ContentSecurityPolicy = %q", cfg.ContentSecurityPolicy)
	}
}

func TestParse_EnvVarDefault(t *testing.T) {
	yaml := `
title: ${LAB_UNSET_TITLE_VAR:-Fallback Lab}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Title != "Fallback Lab" {
		t.Errorf("Title = %q, want %q", cfg.Title, "Fallback Lab")
	}
}

func TestParse_EnvVarMissing(t *testing.T) {
	yaml := `
title: ${LAB_DEFINITELY_UNSET_VAR}
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() expected error for missing env var, got nil")
	}
	if !strings.Contains(err.Error(), "title") || !strings.Contains(err.Error(), "LAB_DEFINITELY_UNSET_VAR") {
		t.Errorf("error = %v, want field and variable named", err)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "port too high",
			yaml:    "port: 70000",
			wantErr: "port must be between 1 and 65535",
		},
		{
			name:    "port negative",
			yaml:    "port: -1",
			wantErr: "port must be between 1 and 65535",
		},
		{
			name:    "negative max_fib_n",
			yaml:    "max_fib_n: -5",
			wantErr: "max_fib_n cannot be negative",
		},
		{
			name:    "negative shutdown_timeout",
			yaml:    "shutdown_timeout: -1s",
			wantErr: "shutdown_timeout cannot be negative",
		},
		{
			name:    "invalid log level",
			yaml:    "log:\n  level: verbose",
			wantErr: "log.level",
		},
		{
			name:    "invalid log format",
			yaml:    "log:\n  format: xml",
			wantErr: "log.format",
		},
		{
			name:    "csp empty after expansion",
			yaml:    "content_security_policy: ${LAB_UNSET_CSP_VAR:-}",
			wantErr: "content_security_policy",
		},
		{
			name:    "empty item key",
			yaml:    "items:\n  \"\": 1",
			wantErr: "items: key cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("port: [unclosed"))
	if err == nil {
		t.Fatal("Parse() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "failed to parse YAML") {
		t.Errorf("error = %v, want containing 'failed to parse YAML'", err)
	}
}

func TestParse_InvalidDuration(t *testing.T) {
	_, err := Parse([]byte("shutdown_timeout: soon"))
	if err == nil {
		t.Fatal("Parse() expected error for invalid duration, got nil")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error = %v, want containing 'invalid duration'", err)
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"10s", 10 * time.Second, false},
		{"1m30s", 90 * time.Second, false},
		{"500ms", 500 * time.Millisecond, false},
		{"", 0, true},
		{"ten", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalText() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && d.Duration() != tt.want {
				t.Errorf("Duration() = %v, want %v", d.Duration(), tt.want)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("LAB_TEST_SET", "value")
	t.Setenv("LAB_TEST_EMPTY", "")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"no vars", "plain text", "plain text", false},
		{"set var", "${LAB_TEST_SET}", "value", false},
		{"set var ignores default", "${LAB_TEST_SET:-other}", "value", false},
		{"empty var is set", "${LAB_TEST_EMPTY:-other}", "", false},
		{"unset with default", "${LAB_TEST_UNSET:-fallback}", "fallback", false},
		{"unset with empty default", "a${LAB_TEST_UNSET:-}b", "ab", false},
		{"multiple", "${LAB_TEST_SET}-${LAB_TEST_UNSET:-x}", "value-x", false},
		{"unset without default", "${LAB_TEST_UNSET}", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnvVars(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expandEnvVars() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}
