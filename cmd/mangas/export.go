package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [manga-name or manga-id]",
	Short: "Generate an EPUB from downloaded chapters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		manga, err := controller.FindManga(args[0])
		if err != nil {
			return err
		}

		path, err := controller.ExportEPUB(cmd.Context(), manga.ID, output)
		if err != nil {
			return fmt.Errorf("EPUB generation failed: %w", err)
		}
		fmt.Printf("📖 EPUB created: %s\n", path)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove [manga-name or manga-id]",
	Short: "Remove a manga and its downloaded chapters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manga, err := controller.FindManga(args[0])
		if err != nil {
			return err
		}
		if err := controller.DeleteManga(manga.ID); err != nil {
			return err
		}
		fmt.Printf("🗑️  Removed '%s' from library\n", manga.Name)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Output directory (default is the downloads epub folder)")
}
