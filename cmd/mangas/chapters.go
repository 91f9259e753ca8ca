package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kerbaras/mangareader/pkg/data"
)

// selectChapters picks chapter IDs from a selection such as "1-10" or
// "3,4,oneshot-id". Ranges compare chapter numbers; other items match a
// chapter ID or number. External chapters are never selected.
func selectChapters(chapters []*data.Chapter, selection string) ([]string, error) {
	selection = strings.TrimSpace(selection)
	if selection == "" {
		return nil, nil
	}

	var ids []string
	seen := make(map[string]bool)
	add := func(chapter *data.Chapter) {
		if !chapter.External && !seen[chapter.ID] {
			seen[chapter.ID] = true
			ids = append(ids, chapter.ID)
		}
	}

	for _, item := range strings.Split(selection, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		if from, to, ok := parseRange(item); ok {
			if from > to {
				return nil, fmt.Errorf("invalid chapter range %q", item)
			}
			for _, chapter := range chapters {
				n, err := strconv.ParseFloat(chapter.Number, 64)
				if err == nil && n >= from && n <= to {
					add(chapter)
				}
			}
			continue
		}

		found := false
		for _, chapter := range chapters {
			if chapter.ID == item || chapter.Number == item {
				add(chapter)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("chapter %q not found", item)
		}
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("no downloadable chapters match %q", selection)
	}
	return ids, nil
}

func parseRange(item string) (from, to float64, ok bool) {
	lo, hi, found := strings.Cut(item, "-")
	if !found {
		return 0, 0, false
	}
	from, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return 0, 0, false
	}
	to, err = strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err != nil {
		return 0, 0, false
	}
	return from, to, true
}
