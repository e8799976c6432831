package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gitlab.com/tinyland/lab/inkframe/pkg/apps"
	"gitlab.com/tinyland/lab/inkframe/pkg/apps/catalog"
	"gitlab.com/tinyland/lab/inkframe/pkg/device/sim"
	"gitlab.com/tinyland/lab/inkframe/pkg/graphics"
	"gitlab.com/tinyland/lab/inkframe/pkg/launcher"
	"gitlab.com/tinyland/lab/inkframe/pkg/preview"
	"gitlab.com/tinyland/lab/inkframe/pkg/state"
)

// launcherTarget renders the menu instead of an app.
const launcherTarget = "launcher"

func newStateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show or change the app started at boot",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the saved app, or none",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, done, err := openState(opts)
			if err != nil {
				return err
			}
			defer done()
			st := store.Load()
			if st.None() {
				fmt.Fprintln(cmd.OutOrStdout(), "none")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), st.Run)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget the saved app so the next boot shows the launcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, done, err := openState(opts)
			if err != nil {
				return err
			}
			defer done()
			return store.Clear()
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <app>",
		Short: "Save the app to start at boot",
		Example: `  inkframe state set app_pictures
  inkframe state set app_weather`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: idStrings()[:len(apps.IDs)],
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := apps.ParseID(args[0])
			if err != nil {
				return err
			}
			store, done, err := openState(opts)
			if err != nil {
				return err
			}
			defer done()
			return store.Save(state.AppState{Run: string(id)})
		},
	}

	cmd.AddCommand(showCmd, clearCmd, setCmd)
	return cmd
}

func openState(opts *options) (*state.Store, func(), error) {
	cfg, logger, closeLog, err := setup(opts)
	if err != nil {
		return nil, nil, err
	}
	return state.NewStore(cfg.General.StateFile, logger), func() { _ = closeLog() }, nil
}

func idStrings() []string {
	out := make([]string, 0, len(apps.IDs)+1)
	for _, id := range apps.IDs {
		out = append(out, string(id))
	}
	return append(out, launcherTarget)
}

type renderOptions struct {
	out     string
	preview string
	cols    int
	rows    int
}

func newRenderCmd(opts *options) *cobra.Command {
	ro := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render <app|launcher>",
		Short: "Run one cycle of an app on the simulator board",
		Long: `Render runs one update and draw of an app against a simulated panel
sized from [hardware] width and height, writes the frame as PNG and shows
it in the terminal. Storage, network and cache settings are the real ones.`,
		Example: `  inkframe render app_news --out news.png
  inkframe render launcher --preview halfblocks`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: idStrings(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.Context(), opts, ro, args[0])
		},
	}
	cmd.Flags().StringVarP(&ro.out, "out", "o", "", "Write the frame to this PNG file")
	cmd.Flags().StringVar(&ro.preview, "preview", "auto", "Terminal preview: auto, kitty, iterm2, sixel, halfblocks or none")
	cmd.Flags().IntVar(&ro.cols, "cols", 100, "Preview width in terminal cells")
	cmd.Flags().IntVar(&ro.rows, "rows", 40, "Preview height in terminal cells")
	return cmd
}

func runRender(ctx context.Context, opts *options, ro *renderOptions, target string) error {
	proto, err := preview.ParseProtocol(ro.preview, os.Getenv)
	if err != nil {
		return err
	}
	cfg, logger, closeLog, err := setup(opts)
	if err != nil {
		return err
	}
	defer closeLog()

	w, h := panelSize(cfg)
	board := sim.New(w, h)
	canvas := graphics.NewCanvas(w, h, board.Panel)
	registry := catalog.Default(cfg)

	if target == launcherTarget {
		launcher.DrawMenu(canvas, registry.Bindings())
		if err := canvas.Update(ctx); err != nil {
			return fmt.Errorf("draw: %w", err)
		}
	} else {
		env := newEnv(cfg, logger)
		env.Surface = canvas
		app, err := registry.Resolve(target, env)
		if err != nil {
			return err
		}
		if err := app.Update(ctx); err != nil {
			logger.Warn("update failed", "app", target, "error", err)
		}
		if err := app.Draw(ctx); err != nil {
			return fmt.Errorf("draw: %w", err)
		}
	}

	if ro.out != "" {
		if err := board.Panel.SavePNG(ro.out); err != nil {
			return fmt.Errorf("write %s: %w", ro.out, err)
		}
		logger.Info("frame written", "path", ro.out, "width", w, "height", h)
	}
	if proto == preview.None {
		return nil
	}
	r := preview.NewRenderer(proto, ro.cols, ro.rows)
	if err := r.Show(os.Stdout, board.Panel.Last()); err != nil && !errors.Is(err, preview.ErrNotTerminal) {
		return err
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "inkframe %s (%s) built %s\n", version, commit, date)
		},
	}
}
