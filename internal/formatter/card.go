package formatter

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/shared"
	"github.com/fogleman/gg"
	"github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Share card geometry, in pixels.
const (
	CardWidth  = 1080
	CardHeight = 1350
	cardMargin = 60
	photoH     = 760
	qrSize     = 240
	maxLines   = 5
)

var (
	cardBackground = color.RGBA{0x12, 0x12, 0x12, 0xff}
	cardForeground = color.RGBA{0xf5, 0xf5, 0xf5, 0xff}
	cardMuted      = color.RGBA{0xa0, 0xa0, 0xa0, 0xff}
	cardAccent     = color.RGBA{0x1d, 0xb9, 0x54, 0xff}
)

// CardInput is everything drawn on a share card.
type CardInput struct {
	Image    image.Image // optional; a placeholder block is drawn when nil
	Title    string
	Subtitle string
	Lines    []string // first few "Artist - Title" rows
	URL      string   // QR payload; omitted when empty
}

// CardFromRun builds card input from a run and, when it has been exported, its playlist URL.
// Without a playlist the QR code points at the first track's catalog link.
func CardFromRun(run *models.Run, img image.Image, playlistURL string) CardInput {
	in := CardInput{
		Image:    img,
		Title:    Title(run),
		Subtitle: run.Description.Summary(),
		URL:      playlistURL,
	}
	if in.Subtitle == "" {
		in.Subtitle = run.Params.Query()
	}
	for i, t := range run.Tracks {
		if i == maxLines {
			break
		}
		in.Lines = append(in.Lines, fmt.Sprintf("%s - %s", t.Artist, t.Title))
	}
	if in.URL == "" && len(run.Tracks) > 0 {
		in.URL = run.Tracks[0].Link
	}
	return in
}

// LoadImage decodes a jpeg, png or webp file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// RenderCard draws a portrait share card and writes it to w as PNG.
func RenderCard(w io.Writer, in CardInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: card title is required", shared.ErrValidation)
	}

	dc := gg.NewContext(CardWidth, CardHeight)
	dc.SetColor(cardBackground)
	dc.Clear()

	photoW := CardWidth - 2*cardMargin
	if in.Image != nil {
		dc.DrawImage(fitPhoto(in.Image, photoW, photoH), cardMargin, cardMargin)
	} else {
		dc.SetColor(cardAccent)
		dc.DrawRectangle(cardMargin, cardMargin, float64(photoW), photoH)
		dc.Fill()
	}

	textW := float64(CardWidth - 3*cardMargin - qrSize)
	y := float64(cardMargin + photoH + 50)

	dc.SetColor(cardForeground)
	y = drawScaled(dc, in.Title, cardMargin, y, 4, textW)

	if in.Subtitle != "" {
		dc.SetColor(cardMuted)
		y = drawScaled(dc, in.Subtitle, cardMargin, y+10, 2, textW)
	}

	dc.SetColor(cardForeground)
	y += 20
	for _, line := range in.Lines {
		y = drawScaled(dc, line, cardMargin, y, 2, textW)
	}

	if in.URL != "" {
		q, err := qrcode.New(in.URL, qrcode.Medium)
		if err != nil {
			return fmt.Errorf("failed to encode QR code: %w", err)
		}
		dc.DrawImage(q.Image(qrSize), CardWidth-cardMargin-qrSize, CardHeight-cardMargin-qrSize)
	}

	return png.Encode(w, dc.Image())
}

// WriteCard renders the card to path.
func WriteCard(path string, in CardInput) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create card file: %w", err)
	}
	if err := RenderCard(f, in); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// drawScaled draws wrapped text with gg's default face enlarged by scale and returns the next baseline.
func drawScaled(dc *gg.Context, s string, x, y, scale, width float64) float64 {
	lines := dc.WordWrap(s, width/scale)
	if len(lines) > 3 {
		lines = append(lines[:2], lines[2]+"...")
	}
	lineH := dc.FontHeight() * 1.4 * scale
	for _, line := range lines {
		dc.Push()
		dc.ScaleAbout(scale, scale, x, y)
		dc.DrawString(line, x, y)
		dc.Pop()
		y += lineH
	}
	return y
}

// fitPhoto scales src to cover a w×h box, cropping the overflow around the center.
func fitPhoto(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	crop := b
	if sw*h > sh*w {
		cw := sh * w / h
		off := (sw - cw) / 2
		crop = image.Rect(b.Min.X+off, b.Min.Y, b.Min.X+off+cw, b.Max.Y)
	} else if sw*h < sh*w {
		ch := sw * h / w
		off := (sh - ch) / 2
		crop = image.Rect(b.Min.X, b.Min.Y+off, b.Max.X, b.Min.Y+off+ch)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, xdraw.Over, nil)
	return dst
}
