package config

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads configuration from the standard config path.
// Search order:
//  1. $INKFRAME_CONFIG
//  2. $XDG_CONFIG_HOME/inkframe/config.toml
//  3. ~/.config/inkframe/config.toml
//  4. /etc/inkframe/config.toml
//
// If no file exists, returns DefaultConfig().
func Load() (*Config, error) {
	paths := configSearchPaths()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return LoadFromFile(p)
		}
	}
	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader reads configuration from an io.Reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// DefaultConfig returns the default configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:   "info",
			StateFile:  "/var/lib/inkframe/state.json",
			CacheDir:   "/var/cache/inkframe",
			HealthFile: "/run/inkframe/health.json",
			PIDFile:    "/run/inkframe/inkframe.pid",
		},
		Schedule: ScheduleConfig{
			DayStart: 8,
			DayEnd:   23,
		},
		Network: NetworkConfig{
			ProbeURL:       "http://connectivitycheck.gstatic.com/generate_204",
			ConnectTimeout: Duration{10 * time.Second},
		},
		Hardware: HardwareConfig{
			Backend:      "periph",
			Restart:      "reboot",
			Buttons:      []string{"GPIO5", "GPIO6", "GPIO16", "GPIO24", "GPIO25"},
			ButtonLEDs:   []string{"GPIO12", "GPIO13", "GPIO19", "GPIO26", "GPIO21"},
			ActiveLow:    true,
			BusyLED:      "GPIO20",
			WarnLED:      "GPIO22",
			NetworkLED:   "GPIO18",
			PollInterval: Duration{100 * time.Millisecond},
			RestartDelay: Duration{500 * time.Millisecond},
			RTCDevice:    "rtc0",
			Width:        600,
			Height:       448,
		},
		Storage: StorageConfig{
			MountPoint: "/sd",
			FSType:     "vfat",
		},
		Apps: AppsConfig{
			NASA: NASAConfig{
				IntervalConfig: IntervalConfig{Day: Minutes(480), Night: Minutes(720)},
				APIKey:         "DEMO_KEY",
				Endpoint:       "https://api.nasa.gov/planetary/apod",
			},
			Pictures: PicturesConfig{
				IntervalConfig: IntervalConfig{Day: Minutes(30), Night: Minutes(240)},
			},
			Weather: WeatherConfig{
				IntervalConfig: IntervalConfig{Day: Minutes(10), Night: Minutes(120)},
				Endpoint:       "https://api.openweathermap.org/data/2.5",
				Lang:           "de",
				Units:          "metric",
				CacheTTL:       Duration{6 * time.Hour},
			},
			News: NewsConfig{
				IntervalConfig: IntervalConfig{Day: Minutes(30), Night: Minutes(240)},
				Endpoint:       "https://hacker-news.firebaseio.com/v0",
				Count:          8,
			},
			Comic: ComicConfig{
				IntervalConfig: IntervalConfig{Day: Minutes(480), Night: Minutes(480)},
				URL:            "https://pimoroni.github.io/feed2image/xkcd-daily.jpg",
				File:           "xkcd-daily.jpg",
			},
		},
	}
}

// applyEnvOverrides checks environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INKFRAME_WIFI_SSID"); v != "" {
		cfg.Network.SSID = v
	}
	if v := os.Getenv("INKFRAME_WIFI_PASSWORD"); v != "" {
		cfg.Network.Password = v
	}
	if v := os.Getenv("OPENWEATHER_API_KEY"); v != "" {
		cfg.Apps.Weather.APIKey = v
	}
	if v := os.Getenv("NASA_API_KEY"); v != "" {
		cfg.Apps.NASA.APIKey = v
	}
	if v := os.Getenv("INKFRAME_LOG_LEVEL"); v != "" {
		cfg.General.LogLevel = v
	}
	if v := os.Getenv("INKFRAME_BACKEND"); v != "" {
		cfg.Hardware.Backend = v
	}
}

// configSearchPaths returns the ordered list of config file paths to try.
func configSearchPaths() []string {
	var paths []string
	if v := os.Getenv("INKFRAME_CONFIG"); v != "" {
		paths = append(paths, v)
	}

	home, _ := os.UserHomeDir()
	xdg := xdgConfigHome(home)
	paths = append(paths, filepath.Join(xdg, "inkframe", "config.toml"))

	// If XDG_CONFIG_HOME was explicitly set, also try the fallback default.
	defaultXDG := filepath.Join(home, ".config")
	if xdg != defaultXDG {
		paths = append(paths, filepath.Join(defaultXDG, "inkframe", "config.toml"))
	}

	return append(paths, filepath.Join("/etc", "inkframe", "config.toml"))
}

// xdgConfigHome returns XDG_CONFIG_HOME or ~/.config as fallback.
func xdgConfigHome(home string) string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".config")
}
