package cmd

import (
	"fmt"

	"github.com/kerbaras/mangareader/pkg/services"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download [manga-name or manga-id]",
	Short: "Download manga chapters",
	Long:  "Download chapters of a manga in your library so they can be read offline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chaptersFlag, _ := cmd.Flags().GetString("chapters")
		export, _ := cmd.Flags().GetBool("epub")

		manga, err := controller.FindManga(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("📚 Found '%s' in library\n", manga.Name)

		_, chapters, err := controller.LoadDetails(cmd.Context(), manga.ID)
		if err != nil {
			return err
		}

		ids, err := selectChapters(chapters, chaptersFlag)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("📥 Downloading all chapters")
		} else {
			fmt.Printf("📥 Downloading %d chapters\n", len(ids))
		}

		// Listen for progress
		done := make(chan struct{})
		finished := make(chan struct{})
		go func() {
			defer close(finished)
			for {
				select {
				case progress, ok := <-controller.DownloadProgress():
					if !ok {
						return
					}
					printProgress(progress)
				case <-done:
					drainProgress()
					return
				}
			}
		}()

		err = controller.Download(cmd.Context(), manga.ID, ids...)
		close(done)
		<-finished
		if err != nil {
			return fmt.Errorf("download failed: %w", err)
		}
		fmt.Println("\n✅ Download complete!")

		if export {
			path, err := controller.ExportEPUB(cmd.Context(), manga.ID, "")
			if err != nil {
				return fmt.Errorf("EPUB generation failed: %w", err)
			}
			fmt.Printf("📖 EPUB created: %s\n", path)
		}
		return nil
	},
}

func printProgress(progress services.DownloadProgress) {
	switch {
	case progress.ChapterNumber == "":
		return
	case progress.Error != nil:
		fmt.Printf("  Chapter %s: %s\n", progress.ChapterNumber, progress.Error)
	case progress.Status == services.StatusDownloading && progress.TotalPages > 0:
		fmt.Printf("  Chapter %s: %d/%d pages\n", progress.ChapterNumber, progress.CurrentPage, progress.TotalPages)
	default:
		fmt.Printf("  Chapter %s: %s\n", progress.ChapterNumber, progress.Status)
	}
}

func drainProgress() {
	for {
		select {
		case progress, ok := <-controller.DownloadProgress():
			if !ok {
				return
			}
			printProgress(progress)
		default:
			return
		}
	}
}

func init() {
	downloadCmd.Flags().StringP("chapters", "c", "", "Chapters to download (e.g., 1-10 or 3,5,7)")
	downloadCmd.Flags().Bool("epub", false, "Export an EPUB once the download finishes")
}
