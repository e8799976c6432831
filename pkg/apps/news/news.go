// Package news shows the current Hacker News front page as a numbered
// list of headlines.
package news

import (
	"context"
	"encoding/json"
	"fmt"
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
	headlinesKey = "news/headlines"
	titleHeight  = 50
)

// Story is one headline.
type Story struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	By    string `json:"by"`
	Score int64  `json:"score"`
}

// ParseStory reads an item response. Items without a title (deleted or
// dead stories) are reported as not ok.
func ParseStory(doc gjson.Result) (Story, bool) {
	s := Story{
		ID:    doc.Get("id").Int(),
		Title: strings.TrimSpace(doc.Get("title").String()),
		By:    doc.Get("by").String(),
		Score: doc.Get("score").Int(),
	}
	if s.Title == "" || doc.Get("deleted").Bool() || doc.Get("dead").Bool() {
		return Story{}, false
	}
	return s, true
}

// App is the headlines board.
type App struct {
	env apps.Env
	cfg config.NewsConfig

	// Stories holds the headlines shown by the last Update.
	Stories []Story
}

// New returns the app. It needs no card.
func New(env apps.Env, cfg config.NewsConfig) *App {
	if cfg.Count <= 0 {
		cfg.Count = 8
	}
	return &App{env: env.WithDefaults(), cfg: cfg}
}

// Factory adapts New to apps.Factory.
func Factory(cfg config.NewsConfig) apps.Factory {
	return func(env apps.Env) (apps.App, error) {
		return New(env, cfg), nil
	}
}

func (a *App) ID() apps.ID { return apps.News }

// Update fetches the top stories and renders them. The assembled list is
// cached as a whole so an offline cycle can redraw it.
func (a *App) Update(ctx context.Context) error {
	res, err := cache.LoadThrough(ctx, a.env.Cache, headlinesKey, a.fetchStories)
	if err != nil {
		return fmt.Errorf("news: %w", err)
	}
	if res.CacheErr != nil {
		a.env.Logger.Warn("news: cache write failed", "error", res.CacheErr)
	}
	var stories []Story
	if err := json.Unmarshal(res.Data, &stories); err != nil {
		return fmt.Errorf("news: %w: %w", fetch.ErrDecode, err)
	}

	a.render(stories)
	if res.Stale {
		apps.DrawUpdated(a.env.Surface, res.Fetched, a.env.Now())
	}
	a.Stories = stories
	if res.Stale {
		return fmt.Errorf("news: showing cached headlines: %w", res.FetchErr)
	}
	return nil
}

// fetchStories returns the first Count live stories as JSON. Individual
// items that fail are skipped; it fails only when none could be read.
func (a *App) fetchStories(ctx context.Context) ([]byte, error) {
	base := strings.TrimRight(a.cfg.Endpoint, "/")
	ids, err := a.env.Fetch.JSON(ctx, base+"/topstories.json")
	if err != nil {
		return nil, err
	}

	var stories []Story
	var lastErr error
	for _, id := range ids.Array() {
		if len(stories) == a.cfg.Count {
			break
		}
		doc, err := a.env.Fetch.JSON(ctx, fmt.Sprintf("%s/item/%d.json", base, id.Int()))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.env.Logger.Debug("news: skipping item", "id", id.Int(), "error", err)
			lastErr = err
			continue
		}
		if s, ok := ParseStory(doc); ok {
			stories = append(stories, s)
		}
	}
	if len(stories) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, fmt.Errorf("%w: no stories", fetch.ErrDecode)
	}
	return json.Marshal(stories)
}

func (a *App) render(stories []Story) {
	s := a.env.Surface
	w, h := s.Bounds()

	s.SetPen(graphics.White)
	s.Clear()
	s.SetPen(graphics.Orange)
	s.Rectangle(0, 0, w, titleHeight)
	s.SetPen(graphics.White)
	s.Text("Headlines", 10, 12, 0, 2)
	date := a.env.Now().Format("Mon 2 Jan 15:04")
	s.Text(date, w-s.MeasureText(date, 2)-10, 12, 0, 2)

	const scale = 2
	lh := graphics.LineHeight(scale)
	indent := s.MeasureText("00. ", scale)
	y := titleHeight + 10
	for i, story := range stories {
		lines := graphics.Wrap(graphics.Fold(story.Title), w-indent-20, scale)
		if y+len(lines)*lh > h-20 {
			break
		}
		s.SetPen(graphics.Orange)
		s.Text(fmt.Sprintf("%d.", i+1), 10, y, 0, scale)
		s.SetPen(graphics.Black)
		s.Text(story.Title, 10+indent, y, w-indent-20, scale)
		y += len(lines)*lh + 6
	}
}

func (a *App) Draw(ctx context.Context) error {
	return a.env.Surface.Update(ctx)
}

func (a *App) Interval(now time.Time) time.Duration {
	return a.env.Schedule.At(now, a.cfg.Day.Duration, a.cfg.Night.Duration)
}
