package main

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/wfs-draw-query/internal/tui"
)

func viewCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Open the interactive terminal map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := gf.config()
			// the terminal belongs to the map; logs only reach LOG_FILE
			rt, err := newRuntime(cmd.Context(), cfg, gf, io.Discard)
			if err != nil {
				return err
			}
			defer rt.Close()

			poster := tui.NewPoster()
			m := tui.New(cfg, rt.fetcher, poster, rt.logger)
			prog := tea.NewProgram(m,
				tea.WithAltScreen(),
				tea.WithMouseAllMotion(),
				tea.WithContext(cmd.Context()),
			)
			poster.Bind(prog)
			final, err := prog.Run()
			poster.Close()
			if fm, ok := final.(tui.Model); ok {
				if s := fm.Session(); s != nil && !s.Disposed() {
					s.Dispose()
				}
			}
			return err
		},
	}
}
