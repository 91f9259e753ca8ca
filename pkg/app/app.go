package app

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangareader/pkg/app/screens"
	"github.com/rs/zerolog"
)

type App struct {
	controller screens.Controller
	log        zerolog.Logger
}

func NewApp(controller screens.Controller, log zerolog.Logger) *App {
	return &App{
		controller: controller,
		log:        log.With().Str("component", "tui").Logger(),
	}
}

// Run starts the TUI on the library view.
func (a *App) Run(ctx context.Context) error {
	return a.run(ctx, screens.NewRootScreen(ctx, a.controller))
}

// RunReader starts the TUI straight into the reader for one chapter.
func (a *App) RunReader(ctx context.Context, mangaID, chapterID string) error {
	root := screens.NewRootScreen(ctx, a.controller)
	root.StartReading(mangaID, chapterID)
	return a.run(ctx, root)
}

func (a *App) run(ctx context.Context, root *screens.RootScreen) error {
	a.log.Info().Msg("starting tui")
	defer root.Close()

	p := tea.NewProgram(root,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		// Interrupted from outside, e.g. SIGTERM.
		err = nil
	}
	if err != nil {
		a.log.Error().Err(err).Msg("tui stopped")
		return err
	}
	a.log.Info().Msg("tui stopped")
	return nil
}
