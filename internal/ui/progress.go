package ui

import (
	"fmt"

	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/tasks"
)

// EventLine renders a progress event as one line of display text.
// It returns "" for events whose payload it does not recognize.
func EventLine(ev tasks.Event) string {
	switch ev.Kind {
	case tasks.EventStarted:
		return startedLine(ev)
	case tasks.EventMatched, tasks.EventUnmatched:
		return stepLine(ev)
	case tasks.EventCompleted:
		return completedLine(ev)
	case tasks.EventFailed:
		if err, ok := ev.Data.(error); ok {
			return err.Error()
		}
	}
	return ""
}

func startedLine(ev tasks.Event) string {
	switch ev.Phase {
	case tasks.PhaseMatch:
		return fmt.Sprintf("Matching %d tracks...", ev.Total)
	case tasks.PhaseAssemble:
		name, _ := ev.Data.(string)
		return fmt.Sprintf("Creating playlist %q...", name)
	case tasks.PhaseGenerate:
		query, _ := ev.Data.(string)
		return fmt.Sprintf("Searching playlists for %q...", query)
	}
	return ""
}

func stepLine(ev tasks.Event) string {
	switch data := ev.Data.(type) {
	case models.MatchResult:
		if data.Found {
			return fmt.Sprintf("[%d/%d] ✓ %s - %s", ev.Step, ev.Total, data.Source.Artist, data.Source.Title)
		}
		return fmt.Sprintf("[%d/%d] ✗ %s - %s: %s", ev.Step, ev.Total, data.Source.Artist, data.Source.Title, data.Message)
	case tasks.BatchAdded:
		return fmt.Sprintf("[%d/%d] added %d of %d tracks", ev.Step, ev.Total, data.Confirmed, data.Tracks)
	case tasks.PlaylistFetched:
		return fmt.Sprintf("[%d/%d] %s (%d tracks)", ev.Step, ev.Total, data.Title, data.Tracks)
	}
	return ""
}

func completedLine(ev tasks.Event) string {
	switch data := ev.Data.(type) {
	case []models.MatchResult:
		found := 0
		for _, r := range data {
			if r.Found {
				found++
			}
		}
		return fmt.Sprintf("Matched %d of %d tracks", found, len(data))
	case models.AssemblyResult:
		return data.Summary()
	case *tasks.GenerateResult:
		return fmt.Sprintf("Kept %d of %d tracks", len(data.Tracks), data.Considered)
	}
	return ""
}
