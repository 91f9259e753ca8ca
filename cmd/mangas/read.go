package cmd

import (
	"fmt"

	"github.com/kerbaras/mangareader/pkg/app"
	"github.com/kerbaras/mangareader/pkg/data"
	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read [manga-name or manga-id]",
	Short: "Read a chapter in the terminal",
	Long:  "Open a chapter in the terminal reader. Without --chapter it resumes where you left off.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chapterRef, _ := cmd.Flags().GetString("chapter")

		manga, err := controller.FindManga(args[0])
		if err != nil {
			return err
		}

		_, chapters, err := controller.LoadDetails(cmd.Context(), manga.ID)
		if err != nil {
			return err
		}

		var chapter *data.Chapter
		if chapterRef != "" {
			chapter, err = controller.FindChapter(manga.ID, chapterRef)
			if err != nil {
				return err
			}
		} else {
			chapter, err = resumeChapter(manga.ID, chapters)
			if err != nil {
				return err
			}
		}

		return app.NewApp(controller, log).RunReader(cmd.Context(), manga.ID, chapter.ID)
	},
}

// resumeChapter is the chapter last read, or the first readable one.
func resumeChapter(mangaID string, chapters []*data.Chapter) (*data.Chapter, error) {
	progress, err := controller.Progress(mangaID)
	if err != nil {
		log.Warn().Err(err).Str("manga", mangaID).Msg("failed to read progress")
	}
	if progress != nil {
		for _, chapter := range chapters {
			if chapter.ID == progress.ChapterID {
				return chapter, nil
			}
		}
	}
	for _, chapter := range chapters {
		if !chapter.External {
			return chapter, nil
		}
	}
	return nil, fmt.Errorf("no readable chapters")
}

func init() {
	readCmd.Flags().StringP("chapter", "c", "", "Chapter number or ID")
}
