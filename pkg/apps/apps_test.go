package apps

import (
	"context"
	"errors"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/inkframe/pkg/device"
	"gitlab.com/tinyland/lab/inkframe/pkg/graphics"
)

func newMockRegistry(t *testing.T) (*Registry, map[ID]*MockApp) {
	t.Helper()
	r := NewRegistry()
	mocks := make(map[ID]*MockApp)
	for i, id := range IDs {
		m := NewMockApp(id, time.Minute)
		mocks[id] = m
		if err := r.Register(Binding{Button: device.Buttons[i], ID: id, Label: string(id)}, m.Factory()); err != nil {
			t.Fatalf("Register(%s): %v", id, err)
		}
	}
	return r, mocks
}

// --- Identifiers ---

func TestParseID(t *testing.T) {
	for _, id := range IDs {
		got, err := ParseID(string(id))
		if err != nil || got != id {
			t.Errorf("ParseID(%q) = %q, %v", id, got, err)
		}
	}
	for _, bad := range []string{"", "app_tetris", "APP_NASA", "nasa"} {
		if _, err := ParseID(bad); !errors.Is(err, ErrUnknownApp) {
			t.Errorf("ParseID(%q) err = %v, want ErrUnknownApp", bad, err)
		}
	}
}

// --- Registry ---

func TestResolveKnownIdentifiers(t *testing.T) {
	r, mocks := newMockRegistry(t)
	env := Env{Surface: graphics.NewCanvas(600, 448, nil)}

	for _, id := range IDs {
		app, err := r.Resolve(string(id), env)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", id, err)
		}
		if app != mocks[id] {
			t.Errorf("Resolve(%s) returned the wrong app", id)
		}
		if app.ID() != id {
			t.Errorf("app.ID() = %s, want %s", app.ID(), id)
		}
	}
}

func TestResolveUnknownIdentifier(t *testing.T) {
	r, _ := newMockRegistry(t)
	for _, bad := range []string{"", "app_tetris", "launcher"} {
		_, err := r.Resolve(bad, Env{})
		if !errors.Is(err, ErrUnknownApp) {
			t.Errorf("Resolve(%q) err = %v, want ErrUnknownApp", bad, err)
		}
	}
}

func TestResolveInjectsEnv(t *testing.T) {
	r := NewRegistry()
	canvas := graphics.NewCanvas(640, 400, nil)
	var got Env
	err := r.Register(Binding{Button: device.ButtonA, ID: NASA}, func(env Env) (App, error) {
		got = env
		return NewMockApp(NASA, time.Minute), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Resolve(string(NASA), Env{Surface: canvas}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if w, h := got.Size(); w != 640 || h != 400 {
		t.Errorf("injected size = %dx%d, want 640x400", w, h)
	}
	if got.Logger == nil || got.Now == nil || got.Fetch == nil {
		t.Error("defaults not applied to injected env")
	}
	if got.Schedule.DayStart != 8 || got.Schedule.DayEnd != 23 {
		t.Errorf("default schedule = %+v", got.Schedule)
	}
}

func TestResolveFactoryError(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	_ = r.Register(Binding{Button: device.ButtonA, ID: NASA}, func(Env) (App, error) { return nil, boom })
	if _, err := r.Resolve(string(NASA), Env{}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestRegisterDuplicates(t *testing.T) {
	r := NewRegistry()
	f := NewMockApp(NASA, time.Minute).Factory()
	if err := r.Register(Binding{Button: device.ButtonA, ID: NASA}, f); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register(Binding{Button: device.ButtonB, ID: NASA}, f); err == nil {
		t.Error("duplicate identifier accepted")
	}
	if err := r.Register(Binding{Button: device.ButtonA, ID: News}, f); err == nil {
		t.Error("duplicate button accepted")
	}
	if err := r.Register(Binding{Button: device.ButtonC, ID: Weather}, nil); err == nil {
		t.Error("nil factory accepted")
	}
}

func TestBindingsInButtonOrder(t *testing.T) {
	r, _ := newMockRegistry(t)
	bs := r.Bindings()
	if len(bs) != 5 {
		t.Fatalf("Bindings() has %d entries, want 5", len(bs))
	}
	for i, b := range bs {
		if b.Button != device.Buttons[i] || b.ID != IDs[i] {
			t.Errorf("Bindings()[%d] = %+v", i, b)
		}
	}
	b, ok := r.ForButton(device.ButtonB)
	if !ok || b.ID != Pictures {
		t.Errorf("ForButton(B) = %+v, %v; want app_pictures", b, ok)
	}
	if !r.Has("app_xkcd") || r.Has("app_tetris") {
		t.Error("Has() mismatch")
	}
}

// --- MockApp ---

func TestMockAppCounts(t *testing.T) {
	boom := errors.New("update failed")
	m := NewMockApp(Weather, 10*time.Minute, WithUpdateError(boom))
	if err := m.Update(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Update() = %v", err)
	}
	if err := m.Draw(context.Background()); err != nil {
		t.Errorf("Draw() = %v", err)
	}
	if m.Updates() != 1 || m.Draws() != 1 {
		t.Errorf("counts = %d/%d, want 1/1", m.Updates(), m.Draws())
	}
	if m.Interval(time.Now()) != 10*time.Minute {
		t.Error("Interval mismatch")
	}
}
