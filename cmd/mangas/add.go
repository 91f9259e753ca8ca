package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [manga-name]",
	Short: "Add a manga to your library",
	Long:  "Search for a manga and add it to your library (downloads metadata only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		if id == "" {
			if len(args) == 0 {
				return fmt.Errorf("a manga name or --id is required")
			}
			query := strings.Join(args, " ")
			fmt.Printf("🔍 Searching for '%s'...\n", query)

			results, err := controller.Search(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if len(results) == 0 {
				fmt.Println("❌ No results found.")
				return nil
			}

			// Take the first result
			id = results[0].ID
			fmt.Printf("✅ Found: %s (ID: %s)\n", results[0].Name, id)
		}

		manga, chapters, err := controller.AddManga(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to add manga: %w", err)
		}

		readable := 0
		for _, chapter := range chapters {
			if !chapter.External {
				readable++
			}
		}

		fmt.Printf("✅ Added '%s' to library with %d chapters (%d readable)\n", manga.Name, len(chapters), readable)
		fmt.Printf("💡 To download chapters, use: mangas download \"%s\"\n", manga.Name)
		fmt.Printf("💡 To start reading, use: mangas read \"%s\"\n", manga.Name)
		return nil
	},
}

func init() {
	addCmd.Flags().String("id", "", "Add the manga with this MangaDex ID instead of searching")
}
