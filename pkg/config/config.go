package config

import (
	"errors"
	"fmt"
)

// ErrNotConfigured reports that a feature lacks a required setting. It only
// disables the feature that needs the setting.
var ErrNotConfigured = errors.New("config: not configured")

// Config is the top-level configuration for inkframe.
type Config struct {
	General  GeneralConfig  `toml:"general"`
	Schedule ScheduleConfig `toml:"schedule"`
	Network  NetworkConfig  `toml:"network"`
	Hardware HardwareConfig `toml:"hardware"`
	Storage  StorageConfig  `toml:"storage"`
	Apps     AppsConfig     `toml:"apps"`
}

// GeneralConfig holds file locations and logging settings.
type GeneralConfig struct {
	LogLevel   string `toml:"log_level"`
	LogFile    string `toml:"log_file"`
	StateFile  string `toml:"state_file"`
	CacheDir   string `toml:"cache_dir"`
	HealthFile string `toml:"health_file"`
	PIDFile    string `toml:"pid_file"`
}

// ScheduleConfig defines the daytime window, as hours of the local clock.
// Hours in [DayStart, DayEnd) use the day interval.
type ScheduleConfig struct {
	DayStart int `toml:"day_start"`
	DayEnd   int `toml:"day_end"`
}

// NetworkConfig configures connectivity checks before an app runs.
type NetworkConfig struct {
	SSID           string   `toml:"ssid"`
	Password       string   `toml:"password"`
	ProbeURL       string   `toml:"probe_url"`
	ConnectTimeout Duration `toml:"connect_timeout"`
}

// HardwareConfig selects the board backend and its pin assignment.
type HardwareConfig struct {
	// Backend is "periph" for real hardware or "sim" for the in-memory board.
	Backend string `toml:"backend"`

	// Restart is "reboot" to reboot the board or "exit" to exit the process
	// and let the service manager start it again.
	Restart string `toml:"restart"`

	// Buttons and ButtonLEDs list pin names in button order A..E.
	Buttons    []string `toml:"buttons"`
	ButtonLEDs []string `toml:"button_leds"`
	ActiveLow  bool     `toml:"active_low"`

	BusyLED    string `toml:"busy_led"`
	WarnLED    string `toml:"warn_led"`
	NetworkLED string `toml:"network_led"`

	SPIPort      string   `toml:"spi_port"`
	PollInterval Duration `toml:"poll_interval"`
	RestartDelay Duration `toml:"restart_delay"`
	RTCDevice    string   `toml:"rtc_device"`

	// Width and Height size the simulator panel.
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// StorageConfig describes the removable card holding pictures and downloads.
type StorageConfig struct {
	MountPoint string `toml:"mount_point"`
	Device     string `toml:"device"`
	FSType     string `toml:"fs_type"`
}

// IntervalConfig is a day/night pair of update intervals.
type IntervalConfig struct {
	Day   Duration `toml:"day_interval"`
	Night Duration `toml:"night_interval"`
}

// AppsConfig holds one section per app.
type AppsConfig struct {
	NASA     NASAConfig     `toml:"nasa"`
	Pictures PicturesConfig `toml:"pictures"`
	Weather  WeatherConfig  `toml:"weather"`
	News     NewsConfig     `toml:"news"`
	Comic    ComicConfig    `toml:"comic"`
}

// NASAConfig configures the Astronomy Picture of the Day app.
type NASAConfig struct {
	IntervalConfig
	APIKey   string `toml:"api_key"`
	Endpoint string `toml:"endpoint"`
}

// PicturesConfig configures the random picture app.
type PicturesConfig struct {
	IntervalConfig
	// Dir is relative to the storage mount point. Empty means the root.
	Dir string `toml:"dir"`
}

// WeatherConfig configures the OpenWeatherMap app.
type WeatherConfig struct {
	IntervalConfig
	APIKey   string   `toml:"api_key"`
	Endpoint string   `toml:"endpoint"`
	CityID   string   `toml:"city_id"`
	Lat      float64  `toml:"lat"`
	Lon      float64  `toml:"lon"`
	Lang     string   `toml:"lang"`
	Units    string   `toml:"units"`
	CacheTTL Duration `toml:"cache_ttl"`
}

// NewsConfig configures the headlines app.
type NewsConfig struct {
	IntervalConfig
	Endpoint string `toml:"endpoint"`
	Count    int    `toml:"count"`
}

// ComicConfig configures the daily comic app.
type ComicConfig struct {
	IntervalConfig
	URL  string `toml:"url"`
	File string `toml:"file"`
}

// Validate reports structurally invalid values. Missing credentials are not
// errors; see Warnings.
func (c *Config) Validate() error {
	s := c.Schedule
	if s.DayStart < 0 || s.DayStart > 24 || s.DayEnd < 0 || s.DayEnd > 24 {
		return fmt.Errorf("config: schedule hours must be within 0..24, got %d..%d", s.DayStart, s.DayEnd)
	}
	if s.DayStart >= s.DayEnd {
		return fmt.Errorf("config: schedule day_start %d must be before day_end %d", s.DayStart, s.DayEnd)
	}
	switch c.Hardware.Backend {
	case "periph", "sim":
	default:
		return fmt.Errorf("config: unknown hardware backend %q", c.Hardware.Backend)
	}
	switch c.Hardware.Restart {
	case "reboot", "exit":
	default:
		return fmt.Errorf("config: unknown restart mode %q", c.Hardware.Restart)
	}
	if n := len(c.Hardware.Buttons); n != 0 && n != 5 {
		return fmt.Errorf("config: expected 5 button pins, got %d", n)
	}
	if n := len(c.Hardware.ButtonLEDs); n != 0 && n != 5 {
		return fmt.Errorf("config: expected 5 button LED pins, got %d", n)
	}
	for _, sec := range c.Apps.intervals() {
		if sec.Day.Duration <= 0 || sec.Night.Duration <= 0 {
			return fmt.Errorf("config: apps.%s day_interval and night_interval must be positive, got %q/%q",
				sec.name, sec.Day.Duration, sec.Night.Duration)
		}
	}
	switch c.Apps.Weather.Units {
	case "metric", "imperial", "standard":
	default:
		return fmt.Errorf("config: apps.weather units must be metric, imperial or standard, got %q", c.Apps.Weather.Units)
	}
	return nil
}

type namedInterval struct {
	name string
	IntervalConfig
}

func (a AppsConfig) intervals() []namedInterval {
	return []namedInterval{
		{"nasa", a.NASA.IntervalConfig},
		{"pictures", a.Pictures.IntervalConfig},
		{"weather", a.Weather.IntervalConfig},
		{"news", a.News.IntervalConfig},
		{"comic", a.Comic.IntervalConfig},
	}
}

// Warnings lists features that will run degraded because a setting is
// missing.
func (c *Config) Warnings() []string {
	var w []string
	if c.Network.SSID == "" {
		w = append(w, "network.ssid is empty: connectivity is left to the operating system")
	}
	if c.Apps.Weather.APIKey == "" {
		w = append(w, "apps.weather.api_key is empty: weather app disabled")
	}
	if c.Apps.Weather.CityID == "" && c.Apps.Weather.Lat == 0 && c.Apps.Weather.Lon == 0 {
		w = append(w, "apps.weather has no city_id or coordinates: weather app disabled")
	}
	if c.Storage.MountPoint == "" {
		w = append(w, "storage.mount_point is empty: pictures and comic apps disabled")
	}
	return w
}
