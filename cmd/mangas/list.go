package cmd

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/mangareader/pkg/app/styles"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all manga in your library",
	Long:  "Display all manga in your library in a formatted table",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := controller.Library()
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("📚 No manga in library. Use 'mangas search' to find manga to add.")
			return nil
		}

		// Create table columns
		columns := []table.Column{
			{Title: "Name", Width: 40},
			{Title: "Source", Width: 10},
			{Title: "Status", Width: 12},
			{Title: "Chapters", Width: 10},
			{Title: "Downloaded", Width: 12},
			{Title: "Reading", Width: 12},
		}

		rows := []table.Row{}
		for _, entry := range entries {
			manga := entry.Manga
			status := manga.Status
			if status == "" {
				status = "ready"
			}

			reading := "-"
			if progress := entry.Progress; progress != nil && progress.PageCount > 0 {
				reading = fmt.Sprintf("p. %d/%d", progress.Page+1, progress.PageCount)
			}

			rows = append(rows, table.Row{
				truncateString(manga.Name, 38),
				manga.Source,
				status,
				fmt.Sprintf("%d", entry.Chapters),
				fmt.Sprintf("%d", entry.Downloaded),
				reading,
			})
		}

		t := table.New(
			table.WithColumns(columns),
			table.WithRows(rows),
			table.WithFocused(false),
			table.WithHeight(len(rows)),
		)

		s := table.DefaultStyles()
		s.Header = s.Header.
			Foreground(styles.Secondary).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(styles.Muted).
			BorderBottom(true).
			Bold(true)
		// The table is printed once, nothing is selected.
		s.Selected = s.Cell
		t.SetStyles(s)

		fmt.Printf("\n📚 Library (%d manga)\n\n", len(entries))
		fmt.Println(t.View())
		return nil
	},
}
