// package formatter renders runs for humans and other tools: CSV, Markdown, plain text, JSON and PNG share cards
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/shared"
)

// Supported export formats.
const (
	FormatCSV      = "csv"
	FormatMarkdown = "md"
	FormatText     = "txt"
	FormatJSON     = "json"
)

// Formats lists every value accepted by [Format].
var Formats = []string{FormatCSV, FormatMarkdown, FormatText, FormatJSON}

// ExportToCSV converts a run's tracks to CSV with columns: Position, Title, Artist, Album, Duration, BPM, Rank, Score, Link
func ExportToCSV(run *models.Run) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Title", "Artist", "Album", "Duration", "BPM", "Rank", "Score", "Link"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range run.Tracks {
		record := []string{
			strconv.Itoa(i + 1),
			track.Title,
			track.Artist,
			track.Album,
			shared.FormatDuration(track.Duration),
			strconv.FormatFloat(track.BPM, 'f', -1, 64),
			strconv.Itoa(track.Rank),
			strconv.FormatFloat(track.Score, 'f', 3, 64),
			track.Link,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a run to Markdown with the photo, its description, the parameters and the track list.
//
// exports may be nil; when given, the playlists they created are linked.
func ExportToMarkdown(run *models.Run, exports []models.Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", Title(run))
	fmt.Fprintf(&buf, "![Photo](%s)\n\n", run.ImagePath)

	if summary := run.Description.Summary(); summary != "" {
		fmt.Fprintf(&buf, "**Scene**: %s\n\n", summary)
	}

	p := run.Params
	fmt.Fprintf(&buf, "**Query**: %s\n", p.Query())
	fmt.Fprintf(&buf, "**Tempo**: %.0f BPM · **Energy**: %.2f · **Valence**: %.2f\n", p.TargetTempo, p.TargetEnergy, p.TargetValence)
	if len(p.SeedGenres) > 0 {
		fmt.Fprintf(&buf, "**Genres**: %s\n", strings.Join(p.SeedGenres, ", "))
	}
	fmt.Fprintf(&buf, "**Models**: %s, %s\n", run.VisionModel, run.ParamsModel)
	fmt.Fprintf(&buf, "**Created**: %s\n\n", run.CreatedAt.Format("2006-01-02 15:04"))

	buf.WriteString("## Tracks\n\n")
	for i, track := range run.Tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, track.Artist, track.Title, albumPart, shared.FormatDuration(track.Duration))
	}

	var linked []models.Export
	for _, e := range exports {
		if e.PlaylistURL != "" {
			linked = append(linked, e)
		}
	}
	if len(linked) > 0 {
		buf.WriteString("\n## Playlists\n\n")
		for _, e := range linked {
			fmt.Fprintf(&buf, "- [%s](%s) %d/%d tracks (%s)\n", e.CreatedAt.Format("2006-01-02 15:04"), e.PlaylistURL, e.Confirmed, e.Total, e.Status)
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a run to plain text format
func ExportToText(run *models.Run) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Run: %s\n", run.ID)
	fmt.Fprintf(&buf, "Photo: %s\n", run.ImagePath)
	if summary := run.Description.Summary(); summary != "" {
		fmt.Fprintf(&buf, "Scene: %s\n", summary)
	}
	fmt.Fprintf(&buf, "Query: %s\n", run.Params.Query())
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(run.Tracks))

	for i, track := range run.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.Artist, track.Title)
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders the whole run, indented.
func ExportToJSON(run *models.Run) ([]byte, error) {
	return shared.MarshalJSON(run, true)
}

// Format renders run in the named format.
func Format(run *models.Run, format string, exports []models.Export) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return ExportToCSV(run)
	case FormatMarkdown, "markdown":
		return ExportToMarkdown(run, exports)
	case FormatText, "text", "":
		return ExportToText(run)
	case FormatJSON:
		return ExportToJSON(run)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (expected one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}

// WriteExport renders run and writes it to path.
//
// Defaults to {run id prefix}_tracks.{format} in the current directory.
func WriteExport(run *models.Run, format, path string, exports []models.Export) (string, error) {
	data, err := Format(run, format, exports)
	if err != nil {
		return "", err
	}

	if path == "" {
		ext := strings.ToLower(format)
		if ext == "" || ext == "text" {
			ext = FormatText
		}
		if ext == "markdown" {
			ext = FormatMarkdown
		}
		path = fmt.Sprintf("%s_tracks.%s", ShortID(run.ID), ext)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// Title names a run after its photo.
func Title(run *models.Run) string {
	base := filepath.Base(run.ImagePath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." {
		return "Untitled"
	}
	return strings.ReplaceAll(strings.ReplaceAll(name, "_", " "), "-", " ")
}

// ShortID is the eight character prefix used in listings.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
