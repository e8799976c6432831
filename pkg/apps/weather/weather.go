// Package weather shows current conditions and a short forecast from
// OpenWeatherMap, with the board temperature alongside.
package weather

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/tinyland/lab/inkframe/pkg/apps"
	"gitlab.com/tinyland/lab/inkframe/pkg/cache"
	"gitlab.com/tinyland/lab/inkframe/pkg/config"
	"gitlab.com/tinyland/lab/inkframe/pkg/fetch"
	"gitlab.com/tinyland/lab/inkframe/pkg/graphics"
)

// Cache keys for the two responses.
const (
	currentKey  = "weather/current"
	forecastKey = "weather/forecast"
)

// App is the weather station.
type App struct {
	env        apps.Env
	cfg        config.WeatherConfig
	text       labels
	jpeg       *graphics.JPEG
	storageErr error

	// Last holds the most recently rendered conditions.
	Last     Current
	Forecast []Slot
}

// New returns the app. Missing credentials are reported by Update.
func New(env apps.Env, cfg config.WeatherConfig) *App {
	env = env.WithDefaults()
	a := &App{
		env:  env,
		cfg:  cfg,
		text: labelsFor(cfg.Lang),
		jpeg: graphics.NewJPEG(env.Surface),
	}
	if err := apps.MountStorage(env); err != nil {
		env.Logger.Warn("weather: storage unavailable, icons disabled", "error", err)
		a.storageErr = err
	}
	return a
}

// Factory adapts New to apps.Factory.
func Factory(cfg config.WeatherConfig) apps.Factory {
	return func(env apps.Env) (apps.App, error) {
		return New(env, cfg), nil
	}
}

func (a *App) ID() apps.ID { return apps.Weather }

// Configured reports whether the API key and a location are set.
func (a *App) Configured() error {
	if a.cfg.APIKey == "" {
		return fmt.Errorf("weather: api_key: %w", config.ErrNotConfigured)
	}
	if a.cfg.CityID == "" && !hasCoords(a.cfg) {
		return fmt.Errorf("weather: city_id or lat/lon: %w", config.ErrNotConfigured)
	}
	return nil
}

// Update fetches current conditions and the forecast and renders them. A
// failed forecast only leaves the forecast row empty.
func (a *App) Update(ctx context.Context) error {
	if err := a.Configured(); err != nil {
		apps.DrawNotice(a.env.Surface, "Weather", a.text.notConfigured)
		return err
	}

	res, err := cache.LoadThroughTTL(ctx, a.env.Cache, currentKey, a.cfg.CacheTTL.Duration, a.fetcher(CurrentURL(a.cfg)))
	if err != nil {
		if fetch.IsAuthError(err) {
			apps.DrawNotice(a.env.Surface, "Weather", a.text.rejected)
		}
		return fmt.Errorf("weather: current: %w", err)
	}
	if res.CacheErr != nil {
		a.env.Logger.Warn("weather: cache write failed", "error", res.CacheErr)
	}
	doc, err := fetch.ParseJSON(res.Data)
	if err != nil {
		return fmt.Errorf("weather: current: %w", err)
	}
	cur, err := ParseCurrent(doc)
	if err != nil {
		return err
	}

	var slots []Slot
	fres, ferr := cache.LoadThroughTTL(ctx, a.env.Cache, forecastKey, a.cfg.CacheTTL.Duration, a.fetcher(ForecastURL(a.cfg)))
	if ferr == nil {
		if fdoc, perr := fetch.ParseJSON(fres.Data); perr == nil {
			slots = ParseForecast(fdoc)
		} else {
			ferr = perr
		}
	}
	if ferr != nil {
		a.env.Logger.Warn("weather: forecast unavailable", "error", ferr)
	}

	a.render(ctx, cur, slots, res)
	a.Last, a.Forecast = cur, slots
	if res.Stale {
		return fmt.Errorf("weather: showing cached data: %w", res.FetchErr)
	}
	return nil
}

func (a *App) fetcher(url string) func(context.Context) ([]byte, error) {
	return func(ctx context.Context) ([]byte, error) {
		return a.env.Fetch.Bytes(ctx, url)
	}
}

// Layout positions are for a 600x448 panel and scale with the surface.
const (
	refWidth        = 600
	refHeight       = 448
	statusIconWidth = 240
	minTextScale    = 0.5
)

func (a *App) render(ctx context.Context, cur Current, slots []Slot, res cache.Result) {
	s := a.env.Surface
	w, h := s.Bounds()
	sx := func(v int) int { return v * w / refWidth }
	sy := func(v int) int { return v * h / refHeight }
	k := min(float64(w)/refWidth, float64(h)/refHeight)
	sc := func(ref float64) float64 { return max(ref*k, minTextScale) }
	// fit shrinks a single line so it ends within avail pixels.
	fit := func(text string, ref float64, avail int) float64 {
		scale := sc(ref)
		if tw := s.MeasureText(text, 1); tw > 0 && float64(tw)*scale > float64(avail) {
			scale = float64(max(avail, 1)) / float64(tw)
		}
		return scale
	}

	iconScale := graphics.ScaleFull
	for iconScale < graphics.ScaleEighth && statusIconWidth/int(iconScale) > w*2/5 {
		iconScale *= 2
	}
	wrap := w - sx(250)

	s.SetPen(graphics.White)
	s.Clear()
	a.drawIcon(cur.Icon, w-statusIconWidth/int(iconScale), 0, iconScale, false)

	unit := unitSuffix(a.cfg.Units)
	s.SetPen(graphics.Black)
	s.Text(fmt.Sprintf("%s, %s", cur.Name, a.text.today), sx(10), sy(10), wrap, sc(4))
	body := []string{
		fmt.Sprintf(a.text.feelsLike, cur.FeelsLike, unit),
		cur.Description,
		fmt.Sprintf(a.text.humidity, cur.Humidity),
	}
	if a.env.Sensor != nil {
		if t, err := a.env.Sensor.Temperature(ctx); err == nil {
			body = append(body, fmt.Sprintf(a.text.room, fromCelsius(t, a.cfg.Units), unit))
		} else {
			a.env.Logger.Debug("weather: board temperature unavailable", "error", err)
		}
	}
	y, step := sy(140), max(sy(20), graphics.LineHeight(sc(1)))
	for _, line := range body {
		s.Text(line, sx(10), y, wrap, sc(1))
		y += step
	}

	c := TemperatureColor(Celsius(cur.Temp, a.cfg.Units))
	s.SetPen(s.CreatePen(c.R, c.G, c.B))
	temp := a.formatTemp(cur.Temp)
	s.Text(temp, sx(10), sy(60), 0, fit(temp, 8, w-sx(20)))

	s.SetPen(graphics.Black)
	slotW := w / ForecastSlots
	slotIcon := min(iconScale*2, graphics.ScaleEighth)
	for i, slot := range slots[:min(len(slots), ForecastSlots)] {
		x := slotW * i
		s.Text(slot.Date, x+sx(50), h-sy(180), 0, fit(slot.Date, 2, slotW-sx(50)))
		s.Text(slot.Time, x+sx(60), h-sy(160), 0, fit(slot.Time, 2, slotW-sx(60)))
		t := a.formatTemp(slot.Temp)
		s.Text(t, x+sx(70), h-sy(30), 0, fit(t, 2, slotW-sx(70)))
		a.drawIcon(slot.Icon, x+sx(40), h-sy(140), slotIcon, true)
		s.SetPen(graphics.Black)
	}

	if res.Stale {
		apps.DrawUpdated(s, res.Fetched, a.env.Now())
	}
}

// drawIcon draws status/<icon>.jpg from the card. A missing card or icon
// is logged and skipped.
func (a *App) drawIcon(icon string, x, y int, scale graphics.Scale, dither bool) {
	if icon == "" || a.storageErr != nil {
		return
	}
	err := a.jpeg.OpenFile(a.env.Storage.Path("status", icon+".jpg"))
	if err == nil {
		err = a.jpeg.Decode(x, y, scale, dither)
	}
	if err != nil {
		a.env.Logger.Debug("weather: status icon unavailable", "icon", icon, "error", err)
	}
}

func (a *App) Draw(ctx context.Context) error {
	return a.env.Surface.Update(ctx)
}

func (a *App) Interval(now time.Time) time.Duration {
	return a.env.Schedule.At(now, a.cfg.Day.Duration, a.cfg.Night.Duration)
}

func (a *App) formatTemp(t float64) string {
	return fmt.Sprintf("%.1f%s", t, unitSuffix(a.cfg.Units))
}

// labels holds the screen text for one language.
type labels struct {
	today         string
	feelsLike     string
	humidity      string
	room          string
	notConfigured string
	rejected      string
}

func labelsFor(lang string) labels {
	if lang == "de" {
		return labels{
			today:         "Heute",
			feelsLike:     "Fühlt sich an wie %.1f%s",
			humidity:      "Die Luftfeuchtigkeit liegt bei %d%%",
			room:          "Raumtemperatur: %.2f%s",
			notConfigured: "Kein API-Schlüssel oder Ort konfiguriert. Bitte [apps.weather] in der Konfiguration ergänzen.",
			rejected:      "Der API-Schlüssel wurde abgelehnt.",
		}
	}
	return labels{
		today:         "Today",
		feelsLike:     "Feels like %.1f%s",
		humidity:      "Humidity is %d%%",
		room:          "Room temperature: %.2f%s",
		notConfigured: "No API key or location configured. Set [apps.weather] in the configuration.",
		rejected:      "The API key was rejected.",
	}
}
