package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Output     Output           `yaml:"output"`
	Server     Server           `yaml:"server"`
	Extraction Extraction       `yaml:"extraction"`
	ReportGate ReportGatePolicy `yaml:"report_gate"`
	Weekly     WeeklyPolicy     `yaml:"weekly"`
	Memory     MemoryPolicy     `yaml:"memory"`
	Analytics  AnalyticsPolicy  `yaml:"analytics"`
	Limits     LimitsPolicy     `yaml:"limits"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

// Extraction configures the optional remote outcome/report extraction calls.
// An empty endpoint disables extraction entirely; every session then uses the
// deterministic fallbacks.
type Extraction struct {
	Endpoint       string `yaml:"endpoint"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ReportGatePolicy holds the accept/reject thresholds for externally supplied
// reports. These are tuning knobs, not structural requirements.
type ReportGatePolicy struct {
	MinConfidence     float64  `yaml:"min_confidence"`
	MinFieldLength    int      `yaml:"min_field_length"`
	MinTokenDiversity float64  `yaml:"min_token_diversity"`
	MinTokenCount     int      `yaml:"min_token_count"`
	FillerPhrases     []string `yaml:"filler_phrases"`
}

type WeeklyPolicy struct {
	MinTotalOutcomes int      `yaml:"min_total_outcomes"`
	MinWeekOutcomes  int      `yaml:"min_week_outcomes"`
	ThemeMinCount    int      `yaml:"theme_min_count"`
	MaxThemes        int      `yaml:"max_themes"`
	ThemeStopWords   []string `yaml:"theme_stop_words"`
}

type MemoryPolicy struct {
	ItemCap      int `yaml:"item_cap"`
	LabelCap     int `yaml:"label_cap"`
	StageTwoAt   int `yaml:"stage_two_at"`
	StageThreeAt int `yaml:"stage_three_at"`
}

type AnalyticsPolicy struct {
	ClientEventCap int `yaml:"client_event_cap"`
	ServerEventCap int `yaml:"server_event_cap"`
}

type LimitsPolicy struct {
	DailyMessageCap int `yaml:"daily_message_cap"`
}

// ConfigDir returns the XDG config directory for shipyard.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "shipyard")
}

// DataDir returns the XDG data directory for shipyard.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "shipyard")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/shipyard/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'shipyard init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, _ := parse(nil)
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Server: Server{Port: 8787},
		Extraction: Extraction{
			TimeoutSeconds: 8,
		},
		ReportGate: ReportGatePolicy{
			MinConfidence:     0.55,
			MinFieldLength:    24,
			MinTokenDiversity: 0.55,
			MinTokenCount:     8,
			FillerPhrases:     []string{"pattern signal", "you completed a"},
		},
		Weekly: WeeklyPolicy{
			MinTotalOutcomes: 3,
			MinWeekOutcomes:  3,
			ThemeMinCount:    2,
			MaxThemes:        2,
			ThemeStopWords: []string{
				"that", "with", "from", "this", "your",
				"have", "what", "into", "after",
			},
		},
		Memory: MemoryPolicy{
			ItemCap:      48,
			LabelCap:     160,
			StageTwoAt:   5,
			StageThreeAt: 9,
		},
		Analytics: AnalyticsPolicy{
			ClientEventCap: 400,
			ServerEventCap: 2000,
		},
		Limits: LimitsPolicy{DailyMessageCap: 10},
	}

	if len(data) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
