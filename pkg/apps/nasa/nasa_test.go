package nasa

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/inkframe/pkg/apps"
	"gitlab.com/tinyland/lab/inkframe/pkg/apps/apptest"
	"gitlab.com/tinyland/lab/inkframe/pkg/cache"
	"gitlab.com/tinyland/lab/inkframe/pkg/config"
	"gitlab.com/tinyland/lab/inkframe/pkg/fetch"
	"gitlab.com/tinyland/lab/inkframe/pkg/graphics"
)

type apod struct {
	srv     *httptest.Server
	entry   string
	image   []byte
	fail    atomic.Bool
	queries []string
}

func newAPOD(t *testing.T, media string) *apod {
	t.Helper()
	a := &apod{image: apptest.JPEGBytes(t, 1200, 800, color.RGBA{255, 0, 0, 255})}
	a.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.queries = append(a.queries, r.URL.Path+"?"+r.URL.RawQuery)
		if a.fail.Load() {
			http.Error(w, `{"error": {"code": "OVER_RATE_LIMIT", "message": "slow down"}}`, http.StatusTooManyRequests)
			return
		}
		switch r.URL.Path {
		case "/planetary/apod":
			_, _ = w.Write([]byte(a.entry))
		case "/image/nebula.jpg":
			_, _ = w.Write(a.image)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(a.srv.Close)
	a.entry = fmt.Sprintf(`{
  "date": "2024-06-01",
  "title": "Red Nebula",
  "explanation": "A nebula glows in hydrogen light.",
  "media_type": %q,
  "url": "%s/image/nebula.jpg",
  "copyright": "Jane Doe"
}`, media, a.srv.URL)
	return a
}

func testConfig(endpoint string) config.NASAConfig {
	cfg := config.DefaultConfig().Apps.NASA
	cfg.Endpoint = endpoint + "/planetary/apod"
	return cfg
}

func TestRequestURL(t *testing.T) {
	got := RequestURL(config.DefaultConfig().Apps.NASA)
	if !strings.HasPrefix(got, "https://api.nasa.gov/planetary/apod?") {
		t.Errorf("RequestURL = %q", got)
	}
	if !strings.Contains(got, "api_key=DEMO_KEY") || !strings.Contains(got, "thumbs=true") {
		t.Errorf("RequestURL = %q, missing query", got)
	}
}

func TestParse(t *testing.T) {
	doc, _ := fetch.ParseJSON([]byte(`{"title": " T ", "media_type": "video", "url": "https://youtube/x", "thumbnail_url": "https://img/t.jpg"}`))
	p, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Title != "T" || !p.IsImage() || p.ImageURL() != "https://img/t.jpg" {
		t.Errorf("Parse = %+v", p)
	}

	doc, _ = fetch.ParseJSON([]byte(`{"title": "T", "media_type": "video", "url": "https://youtube/x"}`))
	p, _ = Parse(doc)
	if p.IsImage() {
		t.Error("video without thumbnail reported as image")
	}

	doc, _ = fetch.ParseJSON([]byte(`{"msg": "nope"}`))
	if _, err := Parse(doc); !errors.Is(err, fetch.ErrDecode) {
		t.Errorf("Parse(empty) = %v, want ErrDecode", err)
	}
}

func TestImageURLPrefersStandardResolution(t *testing.T) {
	p := Picture{MediaType: "image", URL: "small", HDURL: "large"}
	if got := p.ImageURL(); got != "small" {
		t.Errorf("ImageURL = %q, want small", got)
	}
	p.URL = ""
	if got := p.ImageURL(); got != "large" {
		t.Errorf("ImageURL = %q, want large", got)
	}
}

func TestUpdateImageFittedWithCaption(t *testing.T) {
	srv := newAPOD(t, "image")
	f := apptest.New(t)

	app := New(f.Env, testConfig(srv.srv.URL))
	if err := app.Update(context.Background()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if app.Last.Title != "Red Nebula" {
		t.Errorf("Last = %+v", app.Last)
	}
	if _, err := os.Stat(filepath.Join(f.Card, fileName)); err != nil {
		t.Errorf("image not saved to card: %v", err)
	}

	// 1200x800 fits the 600x423 box above the caption as 600x400.
	if share := apptest.Share(f.Canvas, image.Rect(0, 20, 600, 400), graphics.Red); share < 0.95 {
		t.Errorf("picture red share = %.2f", share)
	}
	if share := apptest.Share(f.Canvas, image.Rect(0, 448-apps.CaptionHeight, 600, 448), graphics.Red); share != 0 {
		t.Errorf("caption strip red share = %.2f, want 0", share)
	}
}

func TestUpdateWithoutCardDecodesInMemory(t *testing.T) {
	srv := newAPOD(t, "image")
	f := apptest.New(t, apptest.WithoutCard())

	app := New(f.Env, testConfig(srv.srv.URL))
	if err := app.Update(context.Background()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if share := apptest.Share(f.Canvas, image.Rect(0, 20, 600, 400), graphics.Red); share < 0.95 {
		t.Errorf("picture red share = %.2f", share)
	}
}

func TestUpdateVideoDrawsText(t *testing.T) {
	srv := newAPOD(t, "video")
	f := apptest.New(t)

	app := New(f.Env, testConfig(srv.srv.URL))
	if err := app.Update(context.Background()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	for _, q := range srv.queries {
		if strings.HasPrefix(q, "/image/") {
			t.Errorf("video entry downloaded %s", q)
		}
	}
	if share := apptest.Share(f.Canvas, image.Rect(0, 0, 600, 10), graphics.Blue); share != 1 {
		t.Errorf("title bar blue share = %.2f, want 1", share)
	}
	if share := apptest.Share(f.Canvas, image.Rect(0, 65, 600, 80), graphics.Black); share == 0 {
		t.Error("explanation not drawn")
	}
}

func TestUpdateRateLimitedFallsBackToCache(t *testing.T) {
	srv := newAPOD(t, "video")
	f := apptest.New(t)
	store, err := cache.NewStore(cache.StoreConfig{Dir: t.TempDir(), DefaultTTL: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	f.Env.Cache = store

	app := New(f.Env, testConfig(srv.srv.URL))
	if err := app.Update(context.Background()); err != nil {
		t.Fatalf("first Update: %v", err)
	}
	srv.fail.Store(true)
	app.Last = Picture{}

	err = app.Update(context.Background())
	if !fetch.IsRateLimitError(err) {
		t.Fatalf("second Update = %v, want rate limit error", err)
	}
	if app.Last.Title != "Red Nebula" {
		t.Errorf("cached entry not rendered, Last = %+v", app.Last)
	}
}

func TestUpdateWithoutKey(t *testing.T) {
	f := apptest.New(t)
	cfg := testConfig("http://unused")
	cfg.APIKey = ""
	app := New(f.Env, cfg)
	if err := app.Update(context.Background()); !errors.Is(err, config.ErrNotConfigured) {
		t.Fatalf("Update = %v, want ErrNotConfigured", err)
	}
}

func TestInterval(t *testing.T) {
	f := apptest.New(t)
	app := New(f.Env, testConfig("http://unused"))
	if got := app.Interval(time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local)); got != 8*time.Hour {
		t.Errorf("day interval = %v, want 8h", got)
	}
	if got := app.Interval(time.Date(2024, 1, 1, 3, 0, 0, 0, time.Local)); got != 12*time.Hour {
		t.Errorf("night interval = %v, want 12h", got)
	}
}
