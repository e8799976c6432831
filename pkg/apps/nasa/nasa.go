// Package nasa shows NASA's Astronomy Picture of the Day.
package nasa

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"gitlab.com/tinyland/lab/inkframe/pkg/apps"
	"gitlab.com/tinyland/lab/inkframe/pkg/cache"
	"gitlab.com/tinyland/lab/inkframe/pkg/config"
	"gitlab.com/tinyland/lab/inkframe/pkg/fetch"
	"gitlab.com/tinyland/lab/inkframe/pkg/graphics"
)

const (
	apodKey  = "nasa/apod"
	fileName = "nasa-apod.jpg"
)

// Picture is one APOD entry.
type Picture struct {
	Date        string
	Title       string
	Explanation string
	MediaType   string
	URL         string
	HDURL       string
	Thumbnail   string
	Copyright   string
}

// IsImage reports whether the entry can be shown as a picture.
func (p Picture) IsImage() bool {
	return p.MediaType == "image" || (p.MediaType == "video" && p.Thumbnail != "")
}

// ImageURL is the URL to download. The standard resolution is preferred
// since the panel is small.
func (p Picture) ImageURL() string {
	if p.MediaType == "video" {
		return p.Thumbnail
	}
	if p.URL != "" {
		return p.URL
	}
	return p.HDURL
}

// Parse reads an APOD response.
func Parse(doc gjson.Result) (Picture, error) {
	p := Picture{
		Date:        doc.Get("date").String(),
		Title:       strings.TrimSpace(doc.Get("title").String()),
		Explanation: strings.TrimSpace(doc.Get("explanation").String()),
		MediaType:   doc.Get("media_type").String(),
		URL:         doc.Get("url").String(),
		HDURL:       doc.Get("hdurl").String(),
		Thumbnail:   doc.Get("thumbnail_url").String(),
		Copyright:   strings.TrimSpace(doc.Get("copyright").String()),
	}
	if p.Title == "" || p.MediaType == "" {
		return Picture{}, fmt.Errorf("nasa: %w: missing title or media_type", fetch.ErrDecode)
	}
	return p, nil
}

// App is the picture of the day.
type App struct {
	env        apps.Env
	cfg        config.NASAConfig
	jpeg       *graphics.JPEG
	storageErr error

	// Last is the entry shown by the last successful Update.
	Last Picture
}

// New returns the app. Without a card the image is decoded in memory.
func New(env apps.Env, cfg config.NASAConfig) *App {
	env = env.WithDefaults()
	a := &App{env: env, cfg: cfg, jpeg: graphics.NewJPEG(env.Surface)}
	if err := apps.MountStorage(env); err != nil {
		env.Logger.Warn("nasa: storage unavailable, images kept in memory", "error", err)
		a.storageErr = err
	}
	return a
}

// Factory adapts New to apps.Factory.
func Factory(cfg config.NASAConfig) apps.Factory {
	return func(env apps.Env) (apps.App, error) {
		return New(env, cfg), nil
	}
}

func (a *App) ID() apps.ID { return apps.NASA }

// RequestURL builds the APOD request.
func RequestURL(cfg config.NASAConfig) string {
	q := url.Values{}
	q.Set("api_key", cfg.APIKey)
	q.Set("thumbs", "true")
	return cfg.Endpoint + "?" + q.Encode()
}

// Update fetches today's entry and renders it: images fitted above a title
// caption, anything else as title and explanation text.
func (a *App) Update(ctx context.Context) error {
	if a.cfg.APIKey == "" {
		apps.DrawNotice(a.env.Surface, "NASA", "No API key configured. Set [apps.nasa] api_key or NASA_API_KEY.")
		return fmt.Errorf("nasa: api_key: %w", config.ErrNotConfigured)
	}

	reqURL := RequestURL(a.cfg)
	res, err := cache.LoadThrough(ctx, a.env.Cache, apodKey, func(ctx context.Context) ([]byte, error) {
		return a.env.Fetch.Bytes(ctx, reqURL)
	})
	if err != nil {
		return fmt.Errorf("nasa: %w", err)
	}
	if res.CacheErr != nil {
		a.env.Logger.Warn("nasa: cache write failed", "error", res.CacheErr)
	}
	doc, err := fetch.ParseJSON(res.Data)
	if err != nil {
		return fmt.Errorf("nasa: %w", err)
	}
	pic, err := Parse(doc)
	if err != nil {
		return err
	}

	if pic.IsImage() {
		img, err := a.load(ctx, pic.ImageURL())
		if err != nil {
			return err
		}
		a.drawPicture(img, pic)
	} else {
		a.drawText(pic)
	}
	if res.Stale {
		apps.DrawUpdated(a.env.Surface, res.Fetched, a.env.Now())
	}

	a.Last = pic
	a.env.Logger.Debug("nasa: showing", "date", pic.Date, "title", pic.Title, "media", pic.MediaType)
	if res.Stale {
		return fmt.Errorf("nasa: showing cached entry: %w", res.FetchErr)
	}
	return nil
}

// load downloads the image to the card, or into memory without one.
func (a *App) load(ctx context.Context, imgURL string) (image.Image, error) {
	if a.storageErr == nil {
		path := a.env.Storage.Path(fileName)
		if _, err := a.env.Fetch.Download(ctx, imgURL, path); err != nil {
			return nil, fmt.Errorf("nasa: %w", err)
		}
		if err := a.jpeg.OpenFile(path); err != nil {
			return nil, err
		}
		return a.jpeg.Image(), nil
	}

	raw, err := a.env.Fetch.Bytes(ctx, imgURL)
	if err != nil {
		return nil, fmt.Errorf("nasa: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", graphics.ErrDecode, imgURL, err)
	}
	return img, nil
}

func (a *App) drawPicture(img image.Image, pic Picture) {
	s := a.env.Surface
	w, h := s.Bounds()
	boxH := h - apps.CaptionHeight

	fitted := graphics.Fit(img, w, boxH)
	b := fitted.Bounds()
	x, y := graphics.Center(b.Dx(), b.Dy(), w, boxH)

	s.SetPen(graphics.Black)
	s.Clear()
	s.DrawImage(fitted, x, y)
	apps.DrawCaption(s, caption(pic))
}

func (a *App) drawText(pic Picture) {
	s := a.env.Surface
	w, _ := s.Bounds()
	s.SetPen(graphics.White)
	s.Clear()
	s.SetPen(graphics.Blue)
	s.Rectangle(0, 0, w, 50)
	s.SetPen(graphics.White)
	s.Text(pic.Title, 10, 12, w-20, 2)
	s.SetPen(graphics.Black)
	s.Text(pic.Explanation, 10, 65, w-20, 1)
}

func caption(p Picture) string {
	if p.Copyright != "" {
		return p.Title + " (" + p.Copyright + ")"
	}
	return p.Title
}

func (a *App) Draw(ctx context.Context) error {
	return a.env.Surface.Update(ctx)
}

func (a *App) Interval(now time.Time) time.Duration {
	return a.env.Schedule.At(now, a.cfg.Day.Duration, a.cfg.Night.Duration)
}
