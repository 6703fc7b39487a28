package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/shared"
	th "github.com/desertthunder/pictune/internal/testing"
)

func sampleRun() *models.Run {
	return &models.Run{
		ID:          "0f9a1c2e-7d4b-4e1a-9c3f-5b6a7d8e9f00",
		ImagePath:   "/photos/beach_sunset.jpg",
		Description: models.SceneDescription{Raw: json.RawMessage(`{"description":"a warm beach at dusk"}`)},
		Params: models.MusicParams{
			SearchQuery:   "chill summer",
			TargetTempo:   100,
			TargetEnergy:  0.4,
			TargetValence: 0.7,
			SeedGenres:    []string{"indie", "soul"},
			Limit:         20,
		},
		Tracks: []models.GeneratedTrack{
			{ID: 1, Title: "Song One", Artist: "Artist One", Album: "Album One", Duration: 180, BPM: 98, Rank: 500000, Score: 0.912, Link: "https://www.deezer.com/track/1"},
			{ID: 2, Title: "Song Two", Artist: "Artist Two", Duration: 240, BPM: 0, Rank: 1200, Score: 0.5},
		},
		VisionModel: "gpt-4o",
		ParamsModel: "gpt-4o-mini",
		CreatedAt:   time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC),
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleRun())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Position,Title,Artist,Album,Duration,BPM,Rank,Score,Link") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "1,Song One,Artist One,Album One,3:00,98,500000,0.912,https://www.deezer.com/track/1") {
			t.Errorf("CSV missing first track row, got: %s", output)
		}
		if !strings.Contains(output, "2,Song Two,Artist Two,,4:00,0,1200,0.500,") {
			t.Errorf("CSV missing second track row, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("without exports", func(t *testing.T) {
			data, err := ExportToMarkdown(sampleRun(), nil)
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}

			output := string(data)
			for _, want := range []string{
				"# beach sunset",
				"![Photo](/photos/beach_sunset.jpg)",
				"**Scene**: a warm beach at dusk",
				"**Query**: chill summer",
				"**Genres**: indie, soul",
				"1. Artist One - Song One (Album One) [3:00]",
				"2. Artist Two - Song Two [4:00]",
			} {
				if !strings.Contains(output, want) {
					t.Errorf("Markdown missing %q, got:\n%s", want, output)
				}
			}
			if strings.Contains(output, "## Playlists") {
				t.Error("Markdown should not list playlists without exports")
			}
		})

		t.Run("with exports", func(t *testing.T) {
			exports := []models.Export{
				{PlaylistURL: "https://open.spotify.com/playlist/pl1", Confirmed: 2, Total: 2, Status: models.ExportComplete},
				{Status: models.ExportFailed},
			}
			data, err := ExportToMarkdown(sampleRun(), exports)
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}

			output := string(data)
			if !strings.Contains(output, "## Playlists") {
				t.Fatalf("Markdown missing playlists section:\n%s", output)
			}
			if !strings.Contains(output, "(https://open.spotify.com/playlist/pl1) 2/2 tracks (complete)") {
				t.Errorf("Markdown missing playlist link:\n%s", output)
			}
			if strings.Count(output, "\n- [") != 1 {
				t.Errorf("failed export without a playlist should not be linked:\n%s", output)
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleRun())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{"Run: 0f9a1c2e", "Query: chill summer", "Tracks: 2", "1. Artist One - Song One", "2. Artist Two - Song Two"} {
			if !strings.Contains(output, want) {
				t.Errorf("Text missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(sampleRun())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded models.Run
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if len(decoded.Tracks) != 2 || decoded.Tracks[0].Score != 0.912 {
			t.Errorf("decoded tracks = %+v", decoded.Tracks)
		}
		if decoded.Description.Summary() != "a warm beach at dusk" {
			t.Errorf("description not preserved: %s", decoded.Description.Raw)
		}
		if !bytes.Contains(data, []byte("\n  ")) {
			t.Error("expected indented JSON")
		}
	})
}

func TestFormat(t *testing.T) {
	tests := []struct {
		format string
		prefix string
	}{
		{"csv", "Position,"},
		{"md", "# beach sunset"},
		{"markdown", "# beach sunset"},
		{"txt", "Run: "},
		{"", "Run: "},
		{"JSON", "{"},
	}

	for _, tt := range tests {
		t.Run("format "+tt.format, func(t *testing.T) {
			data, err := Format(sampleRun(), tt.format, nil)
			if err != nil {
				t.Fatalf("Format(%q) failed: %v", tt.format, err)
			}
			if !strings.HasPrefix(string(data), tt.prefix) {
				t.Errorf("Format(%q) = %q..., want prefix %q", tt.format, string(data[:min(len(data), 20)]), tt.prefix)
			}
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		_, err := Format(sampleRun(), "xml", nil)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestWriteExport(t *testing.T) {
	t.Run("custom path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "run.csv")

		written, err := WriteExport(sampleRun(), "csv", path, nil)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if written != path {
			t.Errorf("written = %q, want %q", written, path)
		}

		th.AssertFileExists(t, path)
		if content := th.MustReadFile(t, path); !strings.Contains(content, "Song One") {
			t.Errorf("file missing track, got: %s", content)
		}
	})

	t.Run("invalid format writes nothing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "run.xml")
		if _, err := WriteExport(sampleRun(), "xml", path, nil); err == nil {
			t.Fatal("expected error")
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("expected no file at %s, stat err = %v", path, err)
		}
	})
}

func TestTitle(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/photos/beach_sunset.jpg", "beach sunset"},
		{"city-night.png", "city night"},
		{"", "Untitled"},
	}
	for _, tt := range tests {
		if got := Title(&models.Run{ImagePath: tt.path}); got != tt.want {
			t.Errorf("Title(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}

	if got := ShortID("0f9a1c2e-7d4b"); got != "0f9a1c2e" {
		t.Errorf("ShortID = %q", got)
	}
	if got := ShortID("abc"); got != "abc" {
		t.Errorf("ShortID = %q", got)
	}
}

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestRenderCard(t *testing.T) {
	red := color.RGBA{0xff, 0, 0, 0xff}

	t.Run("draws photo and QR code", func(t *testing.T) {
		var buf bytes.Buffer
		in := CardInput{
			Image:    solidImage(400, 300, red),
			Title:    "beach sunset",
			Subtitle: "a warm beach at dusk",
			Lines:    []string{"Artist One - Song One"},
			URL:      "https://open.spotify.com/playlist/pl1",
		}
		if err := RenderCard(&buf, in); err != nil {
			t.Fatalf("RenderCard failed: %v", err)
		}

		img, err := png.Decode(&buf)
		if err != nil {
			t.Fatalf("output is not a PNG: %v", err)
		}
		if b := img.Bounds(); b.Dx() != CardWidth || b.Dy() != CardHeight {
			t.Fatalf("bounds = %v, want %dx%d", b, CardWidth, CardHeight)
		}

		r, g, b, _ := img.At(CardWidth/2, cardMargin+photoH/2).RGBA()
		if r>>8 < 0xf0 || g>>8 > 0x10 || b>>8 > 0x10 {
			t.Errorf("photo center = (%d,%d,%d), want red", r>>8, g>>8, b>>8)
		}

		var dark, light int
		for y := CardHeight - cardMargin - qrSize; y < CardHeight-cardMargin; y += 4 {
			for x := CardWidth - cardMargin - qrSize; x < CardWidth-cardMargin; x += 4 {
				r, _, _, _ := img.At(x, y).RGBA()
				if r>>8 < 0x40 {
					dark++
				} else if r>>8 > 0xc0 {
					light++
				}
			}
		}
		if dark == 0 || light == 0 {
			t.Errorf("QR area has dark=%d light=%d modules, want both", dark, light)
		}
	})

	t.Run("without URL leaves QR area blank", func(t *testing.T) {
		var buf bytes.Buffer
		if err := RenderCard(&buf, CardInput{Title: "no link"}); err != nil {
			t.Fatalf("RenderCard failed: %v", err)
		}

		img, err := png.Decode(&buf)
		if err != nil {
			t.Fatal(err)
		}
		got := color.RGBAModel.Convert(img.At(CardWidth-cardMargin-qrSize/2, CardHeight-cardMargin-qrSize/2)).(color.RGBA)
		if got != cardBackground {
			t.Errorf("QR area = %v, want background", got)
		}
	})

	t.Run("requires title", func(t *testing.T) {
		err := RenderCard(&bytes.Buffer{}, CardInput{Title: "  "})
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("WriteCard and LoadImage", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "photo.png")

		var photo bytes.Buffer
		if err := png.Encode(&photo, solidImage(20, 40, red)); err != nil {
			t.Fatal(err)
		}
		th.MustWriteFile(t, src, photo.Bytes())

		img, err := LoadImage(src)
		if err != nil {
			t.Fatalf("LoadImage failed: %v", err)
		}
		if img.Bounds().Dx() != 20 {
			t.Errorf("width = %d", img.Bounds().Dx())
		}

		out := filepath.Join(dir, "card.png")
		if err := WriteCard(out, CardFromRun(sampleRun(), img, "")); err != nil {
			t.Fatalf("WriteCard failed: %v", err)
		}
		th.AssertFileExists(t, out)
	})

	t.Run("LoadImage rejects non-images", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes.txt")
		th.MustWriteFile(t, path, []byte("hello"))
		if _, err := LoadImage(path); err == nil {
			t.Error("expected decode error")
		}
	})
}

func TestCardFromRun(t *testing.T) {
	t.Run("prefers playlist URL", func(t *testing.T) {
		in := CardFromRun(sampleRun(), nil, "https://open.spotify.com/playlist/pl1")
		if in.URL != "https://open.spotify.com/playlist/pl1" {
			t.Errorf("URL = %q", in.URL)
		}
		if in.Title != "beach sunset" || in.Subtitle != "a warm beach at dusk" {
			t.Errorf("title/subtitle = %q/%q", in.Title, in.Subtitle)
		}
		if len(in.Lines) != 2 || in.Lines[0] != "Artist One - Song One" {
			t.Errorf("lines = %v", in.Lines)
		}
	})

	t.Run("falls back to first track link and query", func(t *testing.T) {
		run := sampleRun()
		run.Description = models.SceneDescription{}
		in := CardFromRun(run, nil, "")
		if in.URL != "https://www.deezer.com/track/1" {
			t.Errorf("URL = %q", in.URL)
		}
		if in.Subtitle != "chill summer" {
			t.Errorf("Subtitle = %q", in.Subtitle)
		}
	})
}
