// Package deriveconfig loads the tool-wide configuration: derivation limits,
// output defaults, and daemon settings. File values merge over built-in
// defaults; KEYFORGE_* environment variables override both.
package deriveconfig

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so yaml files can use forms like "10m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

type Config struct {
	Derivation DerivationConfig `yaml:"derivation"`
	Output     OutputConfig     `yaml:"output"`
	Daemon     DaemonConfig     `yaml:"daemon"`
}

type DerivationConfig struct {
	// MaxMemoryBytes bounds the scrypt working set per derivation.
	MaxMemoryBytes int64 `yaml:"maxMemoryBytes"`
	// DefaultCostExponent is used when the caller supplies none.
	DefaultCostExponent int `yaml:"defaultCostExponent"`
	// AppSalt is the deployment-wide application salt. Never trimmed or
	// normalized; the bytes are used exactly as written.
	AppSalt string `yaml:"appSalt"`
}

type OutputConfig struct {
	// Dir is prepended to relative secret-export paths.
	Dir string `yaml:"dir"`
}

type DaemonConfig struct {
	ListenAddr string `yaml:"listenAddr"`
	// AdmissionMemoryBytes caps the summed scrypt working sets of in-flight
	// derivations. Requests past the cap are rejected, not queued.
	AdmissionMemoryBytes int64    `yaml:"admissionMemoryBytes"`
	RateLimitRPS         float64  `yaml:"rateLimitRPS"`
	RateLimitBurst       int      `yaml:"rateLimitBurst"`
	RateLimitIdleTTL     Duration `yaml:"rateLimitIdleTTL"`
}

func Default() Config {
	return Config{
		Derivation: DerivationConfig{
			MaxMemoryBytes:      1 << 30, // 1 GiB, exponent <= 20 with r=8
			DefaultCostExponent: 15,
		},
		Daemon: DaemonConfig{
			ListenAddr:           "127.0.0.1:8790",
			AdmissionMemoryBytes: 2 << 30,
			RateLimitRPS:         2,
			RateLimitBurst:       4,
			RateLimitIdleTTL:     Duration(10 * time.Minute),
		},
	}
}

// LoadFromPath reads configPath, or the first default candidate that exists
// when configPath is empty. A missing or unparseable file falls back to
// defaults; env overrides apply either way.
func LoadFromPath(configPath string) Config {
	cfg := Default()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates,
			"configs/keyforge.yaml",
			"keyforge.yaml",
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var parsed Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}
		Merge(&cfg, parsed)
		ApplyEnvOverrides(&cfg)
		return cfg
	}

	ApplyEnvOverrides(&cfg)
	return cfg
}

// Merge copies set fields of src over dst, leaving defaults in place for
// anything the file omits.
func Merge(dst *Config, src Config) {
	if src.Derivation.MaxMemoryBytes != 0 {
		dst.Derivation.MaxMemoryBytes = src.Derivation.MaxMemoryBytes
	}
	if src.Derivation.DefaultCostExponent != 0 {
		dst.Derivation.DefaultCostExponent = src.Derivation.DefaultCostExponent
	}
	if src.Derivation.AppSalt != "" {
		dst.Derivation.AppSalt = src.Derivation.AppSalt
	}
	if src.Output.Dir != "" {
		dst.Output.Dir = src.Output.Dir
	}
	if src.Daemon.ListenAddr != "" {
		dst.Daemon.ListenAddr = src.Daemon.ListenAddr
	}
	if src.Daemon.AdmissionMemoryBytes != 0 {
		dst.Daemon.AdmissionMemoryBytes = src.Daemon.AdmissionMemoryBytes
	}
	if src.Daemon.RateLimitRPS != 0 {
		dst.Daemon.RateLimitRPS = src.Daemon.RateLimitRPS
	}
	if src.Daemon.RateLimitBurst != 0 {
		dst.Daemon.RateLimitBurst = src.Daemon.RateLimitBurst
	}
	if src.Daemon.RateLimitIdleTTL != 0 {
		dst.Daemon.RateLimitIdleTTL = src.Daemon.RateLimitIdleTTL
	}
}

// ApplyEnvOverrides applies KEYFORGE_* environment variables on top of cfg.
func ApplyEnvOverrides(cfg *Config) {
	if raw := strings.TrimSpace(os.Getenv("KEYFORGE_MAX_MEMORY_BYTES")); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil && v > 0 {
			cfg.Derivation.MaxMemoryBytes = v
		}
	}
	if raw := strings.TrimSpace(os.Getenv("KEYFORGE_DEFAULT_COST_EXPONENT")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.Derivation.DefaultCostExponent = v
		}
	}
	// The app salt is byte-sensitive, so the raw env value is used untrimmed.
	if raw, ok := os.LookupEnv("KEYFORGE_APP_SALT"); ok && raw != "" {
		cfg.Derivation.AppSalt = raw
	}
	if raw := strings.TrimSpace(os.Getenv("KEYFORGE_LISTEN_ADDR")); raw != "" {
		cfg.Daemon.ListenAddr = raw
	}
	if raw := strings.TrimSpace(os.Getenv("KEYFORGE_ADMISSION_MEMORY_BYTES")); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil && v > 0 {
			cfg.Daemon.AdmissionMemoryBytes = v
		}
	}
}
