package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"grimvault/internal/hotkey"
)

// Version is the application version reported to the lookup service. It is
// overridden at build time with -ldflags "-X grimvault/internal/config.Version=...".
var Version = "0.0.0-dev"

// AppName is used for the config directory and the overlay window title.
const AppName = "GrimVault"

// Capture methods understood by the native module.
const (
	CaptureWGC = "wgc"
	CaptureD3D = "d3d"
	CaptureGDI = "gdi"
)

// Scan modes.
const (
	ModeAutomatic = "automatic"
	ModeManual    = "manual"
	ModeDisabled  = "disabled"
)

// Tick strategies.
const (
	StrategyPoll  = "poll"
	StrategyEvent = "event"
)

var (
	captureMethods = []string{CaptureWGC, CaptureD3D, CaptureGDI}
	scanModes      = []string{ModeAutomatic, ModeManual, ModeDisabled}
	alignments     = []string{"attached", "top-left", "top-right", "bottom-left", "bottom-right"}
	strategies     = []string{StrategyPoll, StrategyEvent}
)

// Settings holds all user-editable settings
type Settings struct {
	General GeneralSettings `toml:"general" json:"general"`
	Hotkeys HotkeySettings  `toml:"hotkeys" json:"hotkeys"`
	Overlay OverlaySettings `toml:"overlay" json:"overlay"`
	Tracker TrackerSettings `toml:"tracker" json:"tracker"`
	Scan    ScanSettings    `toml:"scan" json:"scan"`
	Lookup  LookupSettings  `toml:"lookup" json:"lookup"`
}

// GeneralSettings holds application-wide switches
type GeneralSettings struct {
	Telemetry       bool   `toml:"telemetry" json:"telemetry"`
	AutoUpdates     bool   `toml:"auto_updates" json:"auto_updates"`
	LaunchOnStartup bool   `toml:"launch_on_startup" json:"launch_on_startup"`
	SafeMode        bool   `toml:"safe_mode" json:"safe_mode"`
	CaptureMethod   string `toml:"capture_method" json:"capture_method"` // "wgc", "d3d", "gdi"
	DefaultMode     string `toml:"default_mode" json:"default_mode"`     // "automatic", "manual", "disabled"
	Alignment       string `toml:"alignment" json:"alignment"`
}

// HotkeySettings holds global hotkey accelerators
type HotkeySettings struct {
	ToggleMode    string `toml:"toggle_mode" json:"toggle_mode"`
	RunPriceCheck string `toml:"run_price_check" json:"run_price_check"`
}

// OverlaySettings controls which windows the overlay follows
type OverlaySettings struct {
	GameTitle     string   `toml:"game_title" json:"game_title"`
	AllowedTitles []string `toml:"allowed_titles" json:"allowed_titles"`
}

// TrackerSettings controls how often window state is evaluated
type TrackerSettings struct {
	Strategy string   `toml:"strategy" json:"strategy"` // "poll", "event"
	Interval Duration `toml:"interval" json:"interval"`
}

// ScanSettings controls automatic scanning
type ScanSettings struct {
	AutoInterval Duration `toml:"auto_interval" json:"auto_interval"`
}

// LookupSettings controls the price-check client
type LookupSettings struct {
	CacheSize int      `toml:"cache_size" json:"cache_size"`
	CacheTTL  Duration `toml:"cache_ttl" json:"cache_ttl"`
	RateLimit float64  `toml:"rate_limit" json:"rate_limit"` // requests per second, 0 disables
}

// Duration is a time.Duration that reads and writes as "2.5s" style strings.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Service manages settings persistence
type Service struct {
	settings *Settings
	filePath string
	warnings []string
}

// New loads settings from dir, writing the defaults on first run
func New(dir string) (*Service, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	service := &Service{
		filePath: filepath.Join(dir, "settings.toml"),
		settings: DefaultSettings(),
	}

	// Load existing settings if they exist, otherwise create a default file
	if _, err := os.Stat(service.filePath); err == nil {
		if err := service.Load(); err != nil {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
	} else {
		if err := service.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default settings: %w", err)
		}
	}

	return service, nil
}

// DefaultDir returns <UserConfigDir>/GrimVault
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// DefaultSettings returns the default settings
func DefaultSettings() *Settings {
	return &Settings{
		General: GeneralSettings{
			Telemetry:       true,
			AutoUpdates:     true,
			LaunchOnStartup: false,
			CaptureMethod:   CaptureWGC,
			DefaultMode:     ModeAutomatic,
			Alignment:       "attached",
		},
		Hotkeys: HotkeySettings{
			ToggleMode:    "Ctrl+F6",
			RunPriceCheck: "F5",
		},
		Overlay: OverlaySettings{
			GameTitle:     "Dark and Darker",
			AllowedTitles: []string{"Dark and Darker", AppName, AppName + " Overlay"},
		},
		Tracker: TrackerSettings{
			Strategy: StrategyPoll,
			Interval: Duration(2500 * time.Millisecond),
		},
		Scan: ScanSettings{
			AutoInterval: Duration(time.Second),
		},
		Lookup: LookupSettings{
			CacheSize: 100,
			CacheTTL:  Duration(5 * time.Minute),
			RateLimit: 2,
		},
	}
}

// Get returns the current settings
func (s *Service) Get() *Settings {
	return s.settings
}

// Warnings returns the problems found while validating the loaded settings.
// Each invalid value has already been replaced by its default.
func (s *Service) Warnings() []string {
	return s.warnings
}

// Path returns the full path to the settings file
func (s *Service) Path() string {
	return s.filePath
}

// Load reads settings from file. Keys missing from the file keep their
// default values.
func (s *Service) Load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	loaded := DefaultSettings()
	if err := toml.Unmarshal(data, loaded); err != nil {
		return err
	}

	s.warnings = loaded.Validate()
	s.settings = loaded
	return nil
}

// Save writes settings to file
func (s *Service) Save() error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(s.settings); err != nil {
		return err
	}

	return os.WriteFile(s.filePath, buf.Bytes(), 0644)
}

// Validate replaces invalid values with defaults and returns a warning for
// each replacement.
func (st *Settings) Validate() []string {
	defaults := DefaultSettings()
	var warnings []string

	enum := func(name string, v *string, values []string) {
		for _, allowed := range values {
			if *v == allowed {
				return
			}
		}
		warnings = append(warnings, fmt.Sprintf("invalid %s %q, using %q", name, *v, values[0]))
		*v = values[0]
	}

	enum("general.capture_method", &st.General.CaptureMethod, captureMethods)
	enum("general.default_mode", &st.General.DefaultMode, scanModes)
	enum("general.alignment", &st.General.Alignment, alignments)
	enum("tracker.strategy", &st.Tracker.Strategy, strategies)

	accel := func(name string, v *string, fallback string) {
		if *v == "" {
			*v = fallback
			return
		}
		if _, err := hotkey.Parse(*v); err != nil {
			warnings = append(warnings, fmt.Sprintf("invalid %s %q, using %q", name, *v, fallback))
			*v = fallback
		}
	}

	accel("hotkeys.toggle_mode", &st.Hotkeys.ToggleMode, defaults.Hotkeys.ToggleMode)
	accel("hotkeys.run_price_check", &st.Hotkeys.RunPriceCheck, defaults.Hotkeys.RunPriceCheck)

	if st.Hotkeys.ToggleMode == st.Hotkeys.RunPriceCheck {
		warnings = append(warnings, fmt.Sprintf("hotkeys.toggle_mode and hotkeys.run_price_check are both %q, using defaults", st.Hotkeys.ToggleMode))
		st.Hotkeys.ToggleMode = defaults.Hotkeys.ToggleMode
		st.Hotkeys.RunPriceCheck = defaults.Hotkeys.RunPriceCheck
	}

	if st.Overlay.GameTitle == "" {
		st.Overlay.GameTitle = defaults.Overlay.GameTitle
	}
	if len(st.Overlay.AllowedTitles) == 0 {
		st.Overlay.AllowedTitles = defaults.Overlay.AllowedTitles
	}

	if st.Tracker.Interval.Std() < 100*time.Millisecond {
		warnings = append(warnings, fmt.Sprintf("tracker.interval %s is too short, using %s", st.Tracker.Interval.Std(), defaults.Tracker.Interval.Std()))
		st.Tracker.Interval = defaults.Tracker.Interval
	}
	if st.Scan.AutoInterval.Std() < 250*time.Millisecond {
		warnings = append(warnings, fmt.Sprintf("scan.auto_interval %s is too short, using %s", st.Scan.AutoInterval.Std(), defaults.Scan.AutoInterval.Std()))
		st.Scan.AutoInterval = defaults.Scan.AutoInterval
	}
	if st.Lookup.CacheSize <= 0 {
		st.Lookup.CacheSize = defaults.Lookup.CacheSize
	}
	if st.Lookup.CacheTTL <= 0 {
		st.Lookup.CacheTTL = defaults.Lookup.CacheTTL
	}
	if st.Lookup.RateLimit < 0 {
		st.Lookup.RateLimit = 0
	}

	return warnings
}
