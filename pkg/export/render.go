// Package export turns the planner popup into a PNG and delivers it, and
// submits the planner to the remote store.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

const (
	defaultWidth    = 600
	defaultFontSize = 18.0
	titleScale      = 1.3
	padding         = 24
)

var (
	backgroundColor = color.RGBA{0x28, 0x2A, 0x36, 0xFF}
	titleColor      = color.RGBA{0xFF, 0x79, 0xC6, 0xFF}
	textColor       = color.RGBA{0xF8, 0xF8, 0xF2, 0xFF}
)

// Region is the visual content of the planner popup
type Region struct {
	Title string
	Lines []string
}

// Renderer rasterizes a Region with the Go Regular font
type Renderer struct {
	width    int
	fontSize float64
	title    font.Face
	body     font.Face
}

func NewRenderer(width int, fontSize float64) (*Renderer, error) {
	if width <= 2*padding {
		width = defaultWidth
	}
	if fontSize <= 0 {
		fontSize = defaultFontSize
	}
	parsed, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &Renderer{
		width:    width,
		fontSize: fontSize,
		title: truetype.NewFace(parsed, &truetype.Options{
			Size:    fontSize * titleScale,
			DPI:     72,
			Hinting: font.HintingFull,
		}),
		body: truetype.NewFace(parsed, &truetype.Options{
			Size:    fontSize,
			DPI:     72,
			Hinting: font.HintingFull,
		}),
	}, nil
}

// Render draws region top to bottom, wrapping lines to the image width
func (r *Renderer) Render(ctx context.Context, region Region) ([]byte, error) {
	maxWidth := r.width - 2*padding
	var lines []string
	for _, line := range region.Lines {
		lines = append(lines, wrapText(line, maxWidth, r.body)...)
	}

	titleHeight := lineHeight(r.fontSize * titleScale)
	bodyHeight := lineHeight(r.fontSize)
	height := 2*padding + titleHeight + bodyHeight*max(len(lines), 1)

	img := image.NewRGBA(image.Rect(0, 0, r.width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	y := padding + titleHeight
	drawString(img, r.title, titleColor, padding, y-titleHeight/4, region.Title)

	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		y += bodyHeight
		drawString(img, r.body, textColor, padding, y-bodyHeight/4, line)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawString(img *image.RGBA, face font.Face, col color.Color, x, y int, text string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// wrapText breaks text on spaces so that each line fits maxWidth pixels. A
// single word wider than maxWidth gets a line of its own.
func wrapText(text string, maxWidth int, face font.Face) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := ""
	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if font.MeasureString(face, candidate).Ceil() > maxWidth && current != "" {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	return append(lines, current)
}

func lineHeight(size float64) int {
	return int(size * 1.5)
}
