package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/kerbaras/mangareader/pkg/app/styles"
	"github.com/kerbaras/mangareader/pkg/data"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search for manga",
	Long:  "Search for manga on MangaDex and display results in a table",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		results, err := controller.Search(cmd.Context(), query)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		if len(results) == 0 {
			fmt.Println("No results found.")
			return nil
		}

		owned := make(map[string]bool)
		if entries, err := controller.Library(); err == nil {
			for _, entry := range entries {
				owned[entry.Manga.ID] = true
			}
		}

		fmt.Println(resultsTable(results, owned))
		fmt.Println("💡 To add one to your library, use: mangas add --id <ID>")
		return nil
	},
}

// resultsTable lists search results, marking the ones already in the
// library.
func resultsTable(results []*data.Manga, owned map[string]bool) *table.Table {
	headerStyle := lipgloss.NewStyle().Foreground(styles.Secondary).Bold(true).Align(lipgloss.Center)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	ownedStyle := cellStyle.Foreground(styles.Success)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.Muted)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case owned[results[row].ID]:
				return ownedStyle
			default:
				return cellStyle.Background(styles.RowColor(row))
			}
		}).
		Headers("#", "Name", "ID", "")

	for i, manga := range results {
		mark := ""
		if owned[manga.ID] {
			mark = "✓ in library"
		}
		t.Row(fmt.Sprint(i+1), truncateString(manga.Name, 50), manga.ID, mark)
	}
	return t
}
