package pictures

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/inkframe/pkg/apps"
	"gitlab.com/tinyland/lab/inkframe/pkg/apps/apptest"
	"gitlab.com/tinyland/lab/inkframe/pkg/config"
	"gitlab.com/tinyland/lab/inkframe/pkg/graphics"
	"gitlab.com/tinyland/lab/inkframe/pkg/storage"
)

func testConfig() config.PicturesConfig {
	return config.DefaultConfig().Apps.Pictures
}

func TestCaption(t *testing.T) {
	tests := map[string]string{
		"/sd/my_cat.jpg":              "my cat",
		"/sd/Holiday_2024_beach.JPEG": "Holiday 2024 beach",
		"plain.jpg":                   "plain",
		"no_extension":                "no extension",
	}
	for in, want := range tests {
		if got := Caption(in); got != want {
			t.Errorf("Caption(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUpdateDrawsPictureAndCaption(t *testing.T) {
	f := apptest.New(t)
	f.WriteJPEG(t, "red_barn.jpg", 600, 448, color.RGBA{255, 0, 0, 255})

	app := New(f.Env, testConfig())
	if err := app.Update(context.Background()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := filepath.Base(app.Current); got != "red_barn.jpg" {
		t.Errorf("Current = %q, want red_barn.jpg", got)
	}

	if share := apptest.Share(f.Canvas, image.Rect(0, 0, 600, 400), graphics.Red); share < 0.95 {
		t.Errorf("picture area red share = %.2f, want > 0.95", share)
	}
	strip := image.Rect(0, 448-apps.CaptionHeight, 600, 448)
	if share := apptest.Share(f.Canvas, strip, graphics.Red); share > 0 {
		t.Errorf("caption strip has red pixels (%.2f)", share)
	}
	if share := apptest.Share(f.Canvas, strip, graphics.Black); share == 0 {
		t.Error("caption strip has no text")
	}

	// Update renders into the buffer only; Draw refreshes the panel.
	if n := f.Board.Panel.Frames(); n != 0 {
		t.Errorf("panel refreshed %d times before Draw", n)
	}
	if err := app.Draw(context.Background()); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if n := f.Board.Panel.Frames(); n != 1 {
		t.Errorf("panel frames = %d, want 1", n)
	}
}

func TestUpdateOnlyPicksJPEGs(t *testing.T) {
	f := apptest.New(t)
	f.WriteJPEG(t, "only.jpeg", 10, 10, color.White)
	for _, name := range []string{"notes.txt", ".hidden.jpg"} {
		if err := os.WriteFile(filepath.Join(f.Card, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	app := New(f.Env, testConfig())
	for range 5 {
		if err := app.Update(context.Background()); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got := filepath.Base(app.Current); got != "only.jpeg" {
			t.Fatalf("Current = %q, want only.jpeg", got)
		}
	}
}

func TestUpdateEmptyCardIsNotAnError(t *testing.T) {
	f := apptest.New(t)
	app := New(f.Env, testConfig())
	if err := app.Update(context.Background()); err != nil {
		t.Fatalf("Update on empty card: %v", err)
	}
	if app.Current != "" {
		t.Errorf("Current = %q, want empty", app.Current)
	}
}

func TestUpdateWithoutCard(t *testing.T) {
	f := apptest.New(t, apptest.WithoutCard())
	app := New(f.Env, testConfig())
	for range 2 {
		if err := app.Update(context.Background()); !errors.Is(err, storage.ErrUnavailable) {
			t.Fatalf("Update = %v, want ErrUnavailable", err)
		}
	}
}

func TestUpdateCorruptFile(t *testing.T) {
	f := apptest.New(t)
	if err := os.WriteFile(filepath.Join(f.Card, "broken.jpg"), []byte("not a jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	app := New(f.Env, testConfig())
	if err := app.Update(context.Background()); !errors.Is(err, graphics.ErrDecode) {
		t.Fatalf("Update = %v, want ErrDecode", err)
	}
}

func TestInterval(t *testing.T) {
	f := apptest.New(t)
	app := New(f.Env, testConfig())
	day := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	night := time.Date(2024, 6, 1, 2, 0, 0, 0, time.Local)
	if got := app.Interval(day); got != 30*time.Minute {
		t.Errorf("Interval(day) = %v, want 30m", got)
	}
	if got := app.Interval(night); got != 240*time.Minute {
		t.Errorf("Interval(night) = %v, want 4h", got)
	}
}

func TestFactory(t *testing.T) {
	f := apptest.New(t)
	app, err := Factory(testConfig())(f.Env)
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	if app.ID() != apps.Pictures {
		t.Errorf("ID = %q", app.ID())
	}
}
