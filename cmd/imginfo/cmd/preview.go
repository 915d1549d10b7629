package cmd

import (
	"bytes"
	"fmt"
	"image"
	"os"

	"github.com/charmbracelet/x/mosaic"
	"github.com/disintegration/imaging"
	"github.com/makeworld-the-better-one/dither/v2"
	"github.com/mattn/go-sixel"
	"github.com/soniakeys/quant/median"
	"golang.org/x/term"
)

// Approximate pixel size of one terminal cell, used to size sixel output
const (
	cellWidth  = 10
	cellHeight = 20
)

type previewOptions struct {
	// Width and Height are in character cells. Zero uses the terminal size.
	Width  int
	Height int
	Sixel  bool
	Colors int
}

// terminalSize returns the size of stdout in cells, or 80x24 when stdout is
// not a terminal.
func terminalSize() (int, int) {
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		if width, height, err := term.GetSize(fd); err == nil {
			return width, height
		}
	}
	return 80, 24
}

// fitCells scales an image to the largest cell area within cols x rows that
// keeps its aspect ratio. Each cell holds two pixel rows.
func fitCells(imgW, imgH, cols, rows int) (int, int) {
	if imgW <= 0 || imgH <= 0 || cols <= 0 || rows <= 0 {
		return 0, 0
	}
	ratio := min(float64(cols)/float64(imgW), float64(rows)*2/float64(imgH))
	return max(int(float64(imgW)*ratio), 1), max(int(float64(imgH)*ratio/2), 1)
}

func renderPreview(img image.Image, opts previewOptions) (string, error) {
	if img == nil {
		return "", fmt.Errorf("no image to render")
	}
	cols, rows := opts.Width, opts.Height
	if cols <= 0 || rows <= 0 {
		cols, rows = terminalSize()
		// leave room for the summary line
		rows = max(rows-2, 1)
	}
	if opts.Sixel {
		return renderSixel(img, cols, rows, opts.Colors)
	}
	return renderHalfblocks(img, cols, rows), nil
}

func renderHalfblocks(img image.Image, cols, rows int) string {
	b := img.Bounds()
	w, h := fitCells(b.Dx(), b.Dy(), cols, rows)
	return mosaic.New().Width(w).Height(h).Render(img)
}

// renderSixel reduces the image to a median cut palette of the requested
// size before encoding.
func renderSixel(img image.Image, cols, rows, colors int) (string, error) {
	colors = min(max(colors, 2), 256)

	fitted := imaging.Fit(img, cols*cellWidth, rows*cellHeight, imaging.Lanczos)
	palette := median.Quantizer(colors).Palette(fitted).ColorPalette()

	var processed image.Image = fitted
	if ditherer := dither.NewDitherer(palette); ditherer != nil {
		ditherer.Matrix = dither.Stucki
		if dithered := ditherer.Dither(fitted); dithered != nil {
			processed = dithered
		}
	}

	var buf bytes.Buffer
	if err := sixel.NewEncoder(&buf).Encode(processed); err != nil {
		return "", fmt.Errorf("failed to encode sixel: %w", err)
	}
	return buf.String(), nil
}
