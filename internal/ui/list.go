package ui

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/shared"
)

var (
	_ list.Item = runItem{}
	_ list.Item = trackItem{}
)

// runItem wraps [models.Run] to implement [list.Item].
type runItem struct {
	run models.Run
}

func (i runItem) FilterValue() string { return i.run.ImagePath }
func (i runItem) Title() string       { return filepath.Base(i.run.ImagePath) }
func (i runItem) Description() string {
	desc := fmt.Sprintf("%d tracks • %s", len(i.run.Tracks), i.run.CreatedAt.Format("2006-01-02 15:04"))
	if q := i.run.Params.Query(); q != "" {
		desc = fmt.Sprintf("%s • %s", desc, q)
	}
	return desc
}

// trackItem wraps [models.GeneratedTrack] to implement [list.Item].
type trackItem struct {
	track models.GeneratedTrack
}

func (i trackItem) FilterValue() string { return i.track.Title }
func (i trackItem) Title() string       { return i.track.Title }
func (i trackItem) Description() string {
	desc := fmt.Sprintf("%s • %s • score %.2f", i.track.Artist, shared.FormatDuration(i.track.Duration), i.track.Score)
	if i.track.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album)
	}
	return desc
}
