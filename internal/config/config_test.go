package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

// testOptions mirrors the shape of the server's CLI options.
type testOptions struct {
	Config string `help:"Config file path"`

	Port           string   `toml:"server.port" env:"SERVER_PORT"`
	ControlPersist bool     `toml:"control.persist" env:"CONTROL_PERSIST"`
	VideoWidth     int      `toml:"video.width" env:"VIDEO_WIDTH"`
	AudioDevices   []string `toml:"audio.devices" env:"AUDIO_DEVICES"`
	AudioGain      float64  `toml:"audio.gain" env:"AUDIO_GAIN"`
	AudioArgs      string   `toml:"audio.args" env:"AUDIO_ARGS"`
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
[server]
port = ":9000"

[control]
persist = true

[video]
width = 1920

[audio]
devices = ["1", 2]
gain = 1.5
`)

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Port != ":9000" {
		t.Errorf("Port = %q, want :9000", opts.Port)
	}
	if !opts.ControlPersist {
		t.Error("ControlPersist = false, want true")
	}
	if opts.VideoWidth != 1920 {
		t.Errorf("VideoWidth = %d, want 1920", opts.VideoWidth)
	}
	if want := []string{"1", "2"}; !reflect.DeepEqual(opts.AudioDevices, want) {
		t.Errorf("AudioDevices = %v, want %v", opts.AudioDevices, want)
	}
	if opts.AudioGain != 1.5 {
		t.Errorf("AudioGain = %v, want 1.5", opts.AudioGain)
	}
}

func TestLoadConfigFromEnvVars(t *testing.T) {
	t.Setenv("RPIRTSPD_SERVER_PORT", ":7000")
	t.Setenv("RPIRTSPD_CONTROL_PERSIST", "true")
	t.Setenv("RPIRTSPD_VIDEO_WIDTH", "640")
	t.Setenv("RPIRTSPD_AUDIO_DEVICES", " 0 , 1 ,")

	opts := &testOptions{}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Port != ":7000" {
		t.Errorf("Port = %q, want :7000", opts.Port)
	}
	if !opts.ControlPersist {
		t.Error("ControlPersist = false, want true")
	}
	if opts.VideoWidth != 640 {
		t.Errorf("VideoWidth = %d, want 640", opts.VideoWidth)
	}
	if want := []string{"0", "1"}; !reflect.DeepEqual(opts.AudioDevices, want) {
		t.Errorf("AudioDevices = %v, want %v", opts.AudioDevices, want)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := writeFile(t, "config.toml", `
[server]
port = ":9000"

[video]
width = 1920

[control]
persist = true
`)
	t.Setenv("RPIRTSPD_VIDEO_WIDTH", "800")
	t.Setenv("RPIRTSPD_SERVER_PORT", ":7000")

	opts := &testOptions{Config: path}
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&opts.Port, "port", "", "")
	if err := cmd.Flags().Set("port", ":6000"); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Port != ":6000" {
		t.Errorf("Port = %q, want CLI value :6000", opts.Port)
	}
	if opts.VideoWidth != 800 {
		t.Errorf("VideoWidth = %d, want env value 800", opts.VideoWidth)
	}
	if !opts.ControlPersist {
		t.Error("ControlPersist should come from the file")
	}
}

func TestLoadConfigInvalidEnv(t *testing.T) {
	t.Setenv("RPIRTSPD_VIDEO_WIDTH", "wide")

	opts := &testOptions{VideoWidth: 1280}
	if err := LoadConfig(opts, nil); err == nil {
		t.Fatal("LoadConfig should reject a non-integer width")
	}
	if opts.VideoWidth != 1280 {
		t.Errorf("VideoWidth = %d, want unchanged 1280", opts.VideoWidth)
	}
}

func TestLoadConfigTypeMismatch(t *testing.T) {
	path := writeFile(t, "config.toml", "[video]\nwidth = \"wide\"\n")

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err == nil {
		t.Fatal("LoadConfig should reject a string for an int option")
	}
}

func TestLoadConfigRequiresPointer(t *testing.T) {
	if err := LoadConfig(testOptions{}, nil); err == nil {
		t.Fatal("LoadConfig should reject a non-pointer")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "missing.toml")}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig should not fail for missing file: %v", err)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	path := writeFile(t, "config.toml", "[server\nport = \n")

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err == nil {
		t.Fatal("LoadConfig should fail for invalid TOML")
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"control": map[string]any{
			"persist": true,
			"nats":    map[string]any{"url": "nats://x"},
		},
		"root": "root_value",
	}

	tests := []struct {
		path     string
		expected any
	}{
		{"root", "root_value"},
		{"control.persist", true},
		{"control.nats.url", "nats://x"},
		{"missing", nil},
		{"control.missing", nil},
		{"root.child", nil},
	}

	for _, tt := range tests {
		if got := getNestedValue(data, tt.path); got != tt.expected {
			t.Errorf("getNestedValue(%q) = %v, want %v", tt.path, got, tt.expected)
		}
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":           "port",
		"ControlPersist": "control-persist",
		"LoggingAPI":     "logging-a-p-i",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeFile(t, "config.toml", `
[logging]
level = "warn"
format = "json"
control = "debug"
rtsp = "error"

[output]
verbose = true
`)

	cfg := LoadLoggingConfig(path)

	if cfg.Level != "warn" || cfg.Format != "json" {
		t.Errorf("Level/Format = %q/%q, want warn/json", cfg.Level, cfg.Format)
	}
	if cfg.Modules["control"] != "debug" || cfg.Modules["rtsp"] != "error" {
		t.Errorf("Modules = %v", cfg.Modules)
	}
	if !cfg.Verbose || cfg.Quiet {
		t.Errorf("Verbose/Quiet = %v/%v, want true/false", cfg.Verbose, cfg.Quiet)
	}
	if got := cfg.GlobalLevel(); got != "debug" {
		t.Errorf("GlobalLevel() = %q, want debug", got)
	}
}

func TestLoadLoggingConfigDefaults(t *testing.T) {
	cfg := LoadLoggingConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if cfg.Level != "info" || cfg.Format != "text" {
		t.Errorf("defaults = %q/%q, want info/text", cfg.Level, cfg.Format)
	}
	if cfg.Modules == nil {
		t.Error("Modules should be non-nil")
	}
}

func TestReadControlFile(t *testing.T) {
	path := writeFile(t, "control.txt", `
# applied on every save
main bitrate=2000000

  annotation-text="front door"
# reset
hflip=1
`)

	got, err := ReadControlFile(path)
	if err != nil {
		t.Fatalf("ReadControlFile failed: %v", err)
	}
	want := `main bitrate=2000000 annotation-text="front door" hflip=1`
	if got != want {
		t.Errorf("ReadControlFile() = %q, want %q", got, want)
	}

	if _, err := ReadControlFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("ReadControlFile should fail for a missing file")
	}
}

func TestLoadConfigArrayIntoString(t *testing.T) {
	path := writeFile(t, "config.toml", `
[audio]
args = ["1,0", "2,0", 3]
`)

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if opts.AudioArgs != "1,0 2,0 3" {
		t.Errorf("AudioArgs = %q, want space-joined items", opts.AudioArgs)
	}
}
