package weather

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/inkframe/pkg/apps/apptest"
	"gitlab.com/tinyland/lab/inkframe/pkg/cache"
	"gitlab.com/tinyland/lab/inkframe/pkg/config"
	"gitlab.com/tinyland/lab/inkframe/pkg/fetch"
	"gitlab.com/tinyland/lab/inkframe/pkg/graphics"
)

const currentJSON = `{
  "name": "Muenchen",
  "main": {"temp": 35.0, "feels_like": 33.2, "humidity": 40},
  "weather": [{"description": "Klarer Himmel", "icon": "01d"}]
}`

const forecastJSON = `{
  "list": [
    {"dt_txt": "2024-06-01 12:00:00", "main": {"temp": 21.5, "humidity": 50},
     "weather": [{"description": "Regen", "icon": "10d"}], "wind": {"speed": 3.1, "gust": 5.2, "deg": 200}},
    {"dt_txt": "2024-06-01 15:00:00", "main": {"temp": 22.0, "humidity": 48},
     "weather": [{"description": "Wolken", "icon": "03d"}], "wind": {"speed": 2.0, "deg": 180}},
    {"dt_txt": "2024-06-01 18:00:00", "main": {"temp": 19.0, "humidity": 60},
     "weather": [{"description": "Klar", "icon": "01n"}], "wind": {"speed": 1.0, "deg": 90}}
  ]
}`

type fakeThermometer struct {
	temp  float64
	err   error
	calls atomic.Int32
}

func (f *fakeThermometer) Temperature(context.Context) (float64, error) {
	f.calls.Add(1)
	return f.temp, f.err
}

type owm struct {
	srv      *httptest.Server
	fail     atomic.Bool
	queries  []string
	forecast string
}

func newOWM(t *testing.T) *owm {
	t.Helper()
	o := &owm{forecast: forecastJSON}
	o.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.queries = append(o.queries, r.URL.Path+"?"+r.URL.RawQuery)
		if o.fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"cod": 503, "message": "maintenance"}`))
			return
		}
		switch r.URL.Path {
		case "/data/2.5/weather":
			_, _ = w.Write([]byte(currentJSON))
		case "/data/2.5/forecast":
			_, _ = w.Write([]byte(o.forecast))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(o.srv.Close)
	return o
}

func testConfig(endpoint string) config.WeatherConfig {
	cfg := config.DefaultConfig().Apps.Weather
	cfg.Endpoint = endpoint + "/data/2.5"
	cfg.APIKey = "secret"
	cfg.CityID = "2867714"
	cfg.Lat = 48.137
	cfg.Lon = 11.575
	return cfg
}

func newCache(t *testing.T) *cache.Store {
	t.Helper()
	s, err := cache.NewStore(cache.StoreConfig{Dir: t.TempDir(), DefaultTTL: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// --- Pure helpers ---

func TestTemperatureColor(t *testing.T) {
	tests := []struct {
		temp float64
		want color.RGBA
	}{
		{0, color.RGBA{0, 0, 255, 255}},
		{35, color.RGBA{255, 165, 0, 255}},
		{-12, color.RGBA{0, 0, 255, 255}},
		{48, color.RGBA{255, 165, 0, 255}},
		{17.5, color.RGBA{128, 83, 128, 255}},
	}
	for _, tt := range tests {
		if got := TemperatureColor(tt.temp); got != tt.want {
			t.Errorf("TemperatureColor(%v) = %v, want %v", tt.temp, got, tt.want)
		}
	}
}

func TestCurrentURL(t *testing.T) {
	cfg := testConfig("https://api.example")
	got := CurrentURL(cfg)
	for _, want := range []string{"/data/2.5/weather?", "id=2867714", "appid=secret", "lang=de", "units=metric"} {
		if !strings.Contains(got, want) {
			t.Errorf("CurrentURL = %q, missing %q", got, want)
		}
	}
	if strings.Contains(got, "lat=") {
		t.Errorf("CurrentURL = %q, city id should win over coordinates", got)
	}

	cfg.CityID = ""
	if got := CurrentURL(cfg); !strings.Contains(got, "lat=48.137") || !strings.Contains(got, "lon=11.575") {
		t.Errorf("CurrentURL without city = %q", got)
	}
}

func TestForecastURL(t *testing.T) {
	cfg := testConfig("https://api.example")
	got := ForecastURL(cfg)
	for _, want := range []string{"/data/2.5/forecast?", "lat=48.137", "lon=11.575", "cnt=3", "appid=secret"} {
		if !strings.Contains(got, want) {
			t.Errorf("ForecastURL = %q, missing %q", got, want)
		}
	}

	cfg.Lat, cfg.Lon = 0, 0
	if got := ForecastURL(cfg); !strings.Contains(got, "id=2867714") {
		t.Errorf("ForecastURL without coordinates = %q", got)
	}
}

func TestParseCurrent(t *testing.T) {
	doc, err := fetch.ParseJSON([]byte(currentJSON))
	if err != nil {
		t.Fatal(err)
	}
	cur, err := ParseCurrent(doc)
	if err != nil {
		t.Fatalf("ParseCurrent: %v", err)
	}
	want := Current{Name: "Muenchen", Temp: 35, FeelsLike: 33.2, Description: "Klarer Himmel", Icon: "01d", Humidity: 40}
	if cur != want {
		t.Errorf("ParseCurrent = %+v, want %+v", cur, want)
	}

	doc, _ = fetch.ParseJSON([]byte(`{"cod": 401}`))
	if _, err := ParseCurrent(doc); !errors.Is(err, fetch.ErrDecode) {
		t.Errorf("ParseCurrent without temp = %v, want ErrDecode", err)
	}
}

func TestParseForecast(t *testing.T) {
	doc, _ := fetch.ParseJSON([]byte(forecastJSON))
	slots := ParseForecast(doc)
	if len(slots) != 3 {
		t.Fatalf("len = %d, want 3", len(slots))
	}
	first := slots[0]
	if first.Date != "2024-06-01" || first.Time != "12:00:00" || first.Temp != 21.5 || first.Icon != "10d" {
		t.Errorf("slot 0 = %+v", first)
	}
	if !first.HasGust || first.WindGust != 5.2 || first.WindDeg != 200 {
		t.Errorf("slot 0 wind = %+v", first)
	}
	if slots[1].HasGust {
		t.Error("slot 1 has no gust in the response")
	}
}

func TestParseForecastKeepsThreeSlots(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"list": [`)
	for i := range 5 {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"dt_txt": "2024-06-01 %02d:00:00", "main": {"temp": %d}}`, 3*i, 10+i)
	}
	b.WriteString(`]}`)

	doc, err := fetch.ParseJSON([]byte(b.String()))
	if err != nil {
		t.Fatal(err)
	}
	slots := ParseForecast(doc)
	if len(slots) != ForecastSlots {
		t.Fatalf("len = %d, want %d", len(slots), ForecastSlots)
	}
	if slots[2].Time != "06:00:00" {
		t.Errorf("last slot = %+v, want the third entry", slots[2])
	}
}

func TestUnits(t *testing.T) {
	tests := []struct {
		units   string
		temp    float64
		suffix  string
		celsius float64
	}{
		{"metric", 21, "°C", 21},
		{"imperial", 95, "°F", 35},
		{"standard", 273.15, "K", 0},
		{"", 308.15, "K", 35},
	}
	for _, tt := range tests {
		if got := unitSuffix(tt.units); got != tt.suffix {
			t.Errorf("unitSuffix(%q) = %q, want %q", tt.units, got, tt.suffix)
		}
		got := Celsius(tt.temp, tt.units)
		if math.Abs(got-tt.celsius) > 1e-9 {
			t.Errorf("Celsius(%v, %q) = %v, want %v", tt.temp, tt.units, got, tt.celsius)
		}
		if back := fromCelsius(got, tt.units); math.Abs(back-tt.temp) > 1e-9 {
			t.Errorf("fromCelsius(%v, %q) = %v, want %v", got, tt.units, back, tt.temp)
		}
	}
}

// --- Update ---

func TestUpdateRendersConditions(t *testing.T) {
	o := newOWM(t)
	f := apptest.New(t)
	f.WriteJPEG(t, filepath.Join("status", "01d.jpg"), 240, 100, color.RGBA{255, 0, 0, 255})
	f.WriteJPEG(t, filepath.Join("status", "10d.jpg"), 80, 80, color.RGBA{0, 0, 255, 255})
	therm := &fakeThermometer{temp: 42.5}
	f.Env.Sensor = therm
	f.Env.Cache = newCache(t)

	app := New(f.Env, testConfig(o.srv.URL))
	if err := app.Update(context.Background()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if app.Last.Name != "Muenchen" || len(app.Forecast) != 3 {
		t.Errorf("Last = %+v, forecast slots = %d", app.Last, len(app.Forecast))
	}
	if therm.calls.Load() != 1 {
		t.Errorf("thermometer read %d times, want 1", therm.calls.Load())
	}

	// Status icon in the top right corner.
	if share := apptest.Share(f.Canvas, image.Rect(600-240, 0, 600, 100), graphics.Red); share < 0.9 {
		t.Errorf("status icon red share = %.2f", share)
	}
	// 35 degrees is drawn in the warm end of the scale.
	if share := apptest.Share(f.Canvas, image.Rect(10, 60, 350, 130), graphics.Orange); share == 0 {
		t.Error("temperature not drawn in orange")
	}
	// First forecast icon, half scale, dithered.
	if share := apptest.Share(f.Canvas, image.Rect(40, 448-140, 80, 448-100), graphics.Blue); share < 0.9 {
		t.Errorf("forecast icon blue share = %.2f", share)
	}

	if len(o.queries) != 2 {
		t.Errorf("requests = %v, want weather and forecast", o.queries)
	}
}

func TestUpdateImperialUsesFahrenheitScale(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/data/2.5/weather" {
			_, _ = w.Write([]byte(`{"name": "Tucson", "main": {"temp": 95.0}, "weather": [{"icon": "01d"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"list": []}`))
	}))
	t.Cleanup(srv.Close)

	f := apptest.New(t)
	cfg := testConfig(srv.URL)
	cfg.Units = "imperial"
	app := New(f.Env, cfg)
	if err := app.Update(context.Background()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := app.formatTemp(95); got != "95.0°F" {
		t.Errorf("formatTemp = %q", got)
	}
	// 95 °F is 35 °C, the warm end of the scale.
	if share := apptest.Share(f.Canvas, image.Rect(10, 60, 350, 130), graphics.Orange); share == 0 {
		t.Error("95 °F not drawn in orange")
	}
	if share := apptest.Share(f.Canvas, image.Rect(10, 60, 350, 130), graphics.Blue); share != 0 {
		t.Errorf("95 °F drawn with blue share %.2f", share)
	}
}

func TestUpdateFitsSmallPanel(t *testing.T) {
	o := newOWM(t)
	f := apptest.New(t, apptest.WithSize(250, 122))
	f.WriteJPEG(t, filepath.Join("status", "01d.jpg"), 240, 100, color.RGBA{255, 0, 0, 255})
	f.WriteJPEG(t, filepath.Join("status", "10d.jpg"), 80, 80, color.RGBA{0, 0, 255, 255})

	app := New(f.Env, testConfig(o.srv.URL))
	if err := app.Update(context.Background()); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Quarter-size status icon in the top right corner.
	if share := apptest.Share(f.Canvas, image.Rect(250-60, 0, 250, 25), graphics.Red); share < 0.9 {
		t.Errorf("status icon red share = %.2f", share)
	}
	// First forecast icon at an eighth: 10x10 at (16, 122-38).
	if share := apptest.Share(f.Canvas, image.Rect(16, 84, 26, 94), graphics.Blue); share < 0.9 {
		t.Errorf("forecast icon blue share = %.2f", share)
	}
	// The third slot lands in the right third of the panel.
	if share := apptest.Share(f.Canvas, image.Rect(2*250/3, 122-49, 250, 122), graphics.Black); share == 0 {
		t.Error("third forecast slot not drawn")
	}
	if share := apptest.Share(f.Canvas, image.Rect(0, 0, 250, 122), graphics.Orange); share == 0 {
		t.Error("temperature not drawn")
	}
}

func TestUpdateMissingIconsAreNotErrors(t *testing.T) {
	o := newOWM(t)
	f := apptest.New(t)
	app := New(f.Env, testConfig(o.srv.URL))
	if err := app.Update(context.Background()); err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func TestUpdateWithoutCardStillRenders(t *testing.T) {
	o := newOWM(t)
	f := apptest.New(t, apptest.WithoutCard())
	app := New(f.Env, testConfig(o.srv.URL))
	if err := app.Update(context.Background()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if app.Last.Temp != 35 {
		t.Errorf("Last.Temp = %v", app.Last.Temp)
	}
}

func TestUpdateBrokenForecastKeepsCurrent(t *testing.T) {
	o := newOWM(t)
	o.forecast = "not json"
	f := apptest.New(t)
	app := New(f.Env, testConfig(o.srv.URL))
	if err := app.Update(context.Background()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(app.Forecast) != 0 {
		t.Errorf("Forecast = %v, want empty", app.Forecast)
	}
}

func TestUpdateNotConfigured(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.WeatherConfig)
	}{
		{"no key", func(c *config.WeatherConfig) { c.APIKey = "" }},
		{"no location", func(c *config.WeatherConfig) { c.CityID = ""; c.Lat = 0; c.Lon = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOWM(t)
			f := apptest.New(t)
			cfg := testConfig(o.srv.URL)
			tt.mutate(&cfg)

			app := New(f.Env, cfg)
			err := app.Update(context.Background())
			if !errors.Is(err, config.ErrNotConfigured) {
				t.Fatalf("Update = %v, want ErrNotConfigured", err)
			}
			if len(o.queries) != 0 {
				t.Errorf("requests sent without configuration: %v", o.queries)
			}
			if share := apptest.Share(f.Canvas, image.Rect(0, 0, 600, 50), graphics.Orange); share < 0.5 {
				t.Errorf("notice title bar orange share = %.2f", share)
			}
		})
	}
}

func TestUpdateFallsBackToCache(t *testing.T) {
	o := newOWM(t)
	f := apptest.New(t)
	f.Env.Cache = newCache(t)
	app := New(f.Env, testConfig(o.srv.URL))

	if err := app.Update(context.Background()); err != nil {
		t.Fatalf("first Update: %v", err)
	}

	o.fail.Store(true)
	app.Last = Current{}
	err := app.Update(context.Background())
	if !errors.Is(err, fetch.ErrFetch) {
		t.Fatalf("second Update = %v, want ErrFetch", err)
	}
	if app.Last.Name != "Muenchen" {
		t.Errorf("stale data not rendered, Last = %+v", app.Last)
	}
}

func TestUpdateFailsWithoutCache(t *testing.T) {
	o := newOWM(t)
	o.fail.Store(true)
	f := apptest.New(t)
	app := New(f.Env, testConfig(o.srv.URL))
	err := app.Update(context.Background())
	if !errors.Is(err, fetch.ErrFetch) {
		t.Fatalf("Update = %v, want ErrFetch", err)
	}
}

func TestUpdateRejectedKeyDrawsNotice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"cod": 401, "message": "Invalid API key"}`))
	}))
	t.Cleanup(srv.Close)
	f := apptest.New(t)

	app := New(f.Env, testConfig(srv.URL))
	err := app.Update(context.Background())
	if !fetch.IsAuthError(err) {
		t.Fatalf("Update = %v, want auth error", err)
	}
	if share := apptest.Share(f.Canvas, image.Rect(0, 0, 600, 50), graphics.Orange); share < 0.5 {
		t.Errorf("notice title bar orange share = %.2f", share)
	}
}

func TestIntervalDayNight(t *testing.T) {
	f := apptest.New(t)
	app := New(f.Env, testConfig("http://unused"))
	if got := app.Interval(time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)); got != 10*time.Minute {
		t.Errorf("day interval = %v, want 10m", got)
	}
	if got := app.Interval(time.Date(2024, 6, 1, 23, 0, 0, 0, time.Local)); got != 120*time.Minute {
		t.Errorf("night interval = %v, want 2h", got)
	}
}

func TestLabels(t *testing.T) {
	if labelsFor("de").today != "Heute" {
		t.Error("German labels not used for lang=de")
	}
	if labelsFor("en").today != "Today" {
		t.Error("English labels not used for lang=en")
	}
}
