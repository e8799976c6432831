// Package catalog registers the built-in apps against their buttons.
package catalog

import (
	"gitlab.com/tinyland/lab/inkframe/pkg/apps"
	"gitlab.com/tinyland/lab/inkframe/pkg/apps/comic"
	"gitlab.com/tinyland/lab/inkframe/pkg/apps/nasa"
	"gitlab.com/tinyland/lab/inkframe/pkg/apps/news"
	"gitlab.com/tinyland/lab/inkframe/pkg/apps/pictures"
	"gitlab.com/tinyland/lab/inkframe/pkg/apps/weather"
	"gitlab.com/tinyland/lab/inkframe/pkg/config"
	"gitlab.com/tinyland/lab/inkframe/pkg/device"
)

// Default returns the registry of the five built-in apps, A through E.
func Default(cfg *config.Config) *apps.Registry {
	r := apps.NewRegistry()
	entries := []struct {
		binding apps.Binding
		factory apps.Factory
	}{
		{apps.Binding{Button: device.ButtonA, ID: apps.NASA, Label: "Nasa Picture"}, nasa.Factory(cfg.Apps.NASA)},
		{apps.Binding{Button: device.ButtonB, ID: apps.Pictures, Label: "Pictures"}, pictures.Factory(cfg.Apps.Pictures)},
		{apps.Binding{Button: device.ButtonC, ID: apps.Weather, Label: "Weather"}, weather.Factory(cfg.Apps.Weather)},
		{apps.Binding{Button: device.ButtonD, ID: apps.News, Label: "Headlines"}, news.Factory(cfg.Apps.News)},
		{apps.Binding{Button: device.ButtonE, ID: apps.Comic, Label: "XKCD"}, comic.Factory(cfg.Apps.Comic)},
	}
	for _, e := range entries {
		if err := r.Register(e.binding, e.factory); err != nil {
			// The table above is fixed; a duplicate is a programming error.
			panic(err)
		}
	}
	return r
}
