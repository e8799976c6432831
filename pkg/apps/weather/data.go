package weather

import (
	"fmt"
	"image/color"
	"net/url"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/tidwall/gjson"

	"gitlab.com/tinyland/lab/inkframe/pkg/config"
	"gitlab.com/tinyland/lab/inkframe/pkg/fetch"
)

// Current is the observed weather at the configured place.
type Current struct {
	Name        string
	Temp        float64
	FeelsLike   float64
	Description string
	Icon        string
	Humidity    int
}

// Slot is one forecast step, three hours apart.
type Slot struct {
	Date        string
	Time        string
	Temp        float64
	Description string
	Icon        string
	Humidity    int
	WindSpeed   float64
	WindGust    float64
	HasGust     bool
	WindDeg     int
}

// ParseCurrent reads an OpenWeatherMap /weather response.
func ParseCurrent(doc gjson.Result) (Current, error) {
	temp := doc.Get("main.temp")
	if !temp.Exists() {
		return Current{}, fmt.Errorf("weather: current: %w: no main.temp", fetch.ErrDecode)
	}
	return Current{
		Name:        doc.Get("name").String(),
		Temp:        temp.Float(),
		FeelsLike:   doc.Get("main.feels_like").Float(),
		Description: doc.Get("weather.0.description").String(),
		Icon:        doc.Get("weather.0.icon").String(),
		Humidity:    int(doc.Get("main.humidity").Int()),
	}, nil
}

// ForecastSlots is how many forecast steps the screen has room for.
const ForecastSlots = 3

// ParseForecast reads an OpenWeatherMap /forecast response. Entries without
// a temperature are skipped and at most ForecastSlots are returned.
func ParseForecast(doc gjson.Result) []Slot {
	var slots []Slot
	doc.Get("list").ForEach(func(_, item gjson.Result) bool {
		temp := item.Get("main.temp")
		if !temp.Exists() {
			return true
		}
		date, clock, _ := strings.Cut(item.Get("dt_txt").String(), " ")
		gust := item.Get("wind.gust")
		slots = append(slots, Slot{
			Date:        date,
			Time:        clock,
			Temp:        temp.Float(),
			Description: item.Get("weather.0.description").String(),
			Icon:        item.Get("weather.0.icon").String(),
			Humidity:    int(item.Get("main.humidity").Int()),
			WindSpeed:   item.Get("wind.speed").Float(),
			WindGust:    gust.Float(),
			HasGust:     gust.Exists(),
			WindDeg:     int(item.Get("wind.deg").Int()),
		})
		return len(slots) < ForecastSlots
	})
	return slots
}

// Temperature colour scale: blue at coldTemp, orange at warmTemp.
const (
	coldTemp = 0.0
	warmTemp = 35.0
)

var (
	cold = colorful.Color{R: 0, G: 0, B: 1}
	warm = colorful.Color{R: 1, G: 165.0 / 255.0, B: 0}
)

// TemperatureColor blends from blue to orange across 0..35 °C. Values
// outside the range are clamped.
func TemperatureColor(celsius float64) color.RGBA {
	ratio := (celsius - coldTemp) / (warmTemp - coldTemp)
	ratio = max(0, min(1, ratio))
	r, g, b := cold.BlendRgb(warm, ratio).RGB255()
	return color.RGBA{r, g, b, 255}
}

// Unit suffix and conversions for the OpenWeatherMap units parameter. An
// empty value is what the API calls standard: Kelvin.
func unitSuffix(units string) string {
	switch units {
	case "metric":
		return "°C"
	case "imperial":
		return "°F"
	}
	return "K"
}

// Celsius converts a temperature reported in units to degrees Celsius.
func Celsius(t float64, units string) float64 {
	switch units {
	case "metric":
		return t
	case "imperial":
		return (t - 32) * 5 / 9
	}
	return t - 273.15
}

// fromCelsius is the inverse of Celsius.
func fromCelsius(c float64, units string) float64 {
	switch units {
	case "metric":
		return c
	case "imperial":
		return c*9/5 + 32
	}
	return c + 273.15
}

// CurrentURL builds the /weather request. A city id wins over coordinates.
func CurrentURL(cfg config.WeatherConfig) string {
	q := url.Values{}
	if cfg.CityID != "" {
		q.Set("id", cfg.CityID)
	} else {
		setCoords(q, cfg)
	}
	setCommon(q, cfg)
	return strings.TrimRight(cfg.Endpoint, "/") + "/weather?" + q.Encode()
}

// ForecastURL builds the /forecast request for the next three slots.
// Coordinates win over a city id.
func ForecastURL(cfg config.WeatherConfig) string {
	q := url.Values{}
	if hasCoords(cfg) || cfg.CityID == "" {
		setCoords(q, cfg)
	} else {
		q.Set("id", cfg.CityID)
	}
	q.Set("cnt", strconv.Itoa(ForecastSlots))
	setCommon(q, cfg)
	return strings.TrimRight(cfg.Endpoint, "/") + "/forecast?" + q.Encode()
}

func hasCoords(cfg config.WeatherConfig) bool {
	return cfg.Lat != 0 || cfg.Lon != 0
}

func setCoords(q url.Values, cfg config.WeatherConfig) {
	q.Set("lat", strconv.FormatFloat(cfg.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(cfg.Lon, 'f', -1, 64))
}

func setCommon(q url.Values, cfg config.WeatherConfig) {
	q.Set("appid", cfg.APIKey)
	if cfg.Lang != "" {
		q.Set("lang", cfg.Lang)
	}
	if cfg.Units != "" {
		q.Set("units", cfg.Units)
	}
}
