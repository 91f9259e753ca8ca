package components

import (
	"image"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/mangareader/pkg/app/styles"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
)

const upperHalfBlock = "▀"

// ImageView renders an image with half-block characters: every terminal cell
// shows two vertically stacked pixels.
type ImageView struct {
	img      image.Image
	width    int
	height   int
	rendered string
	dirty    bool
}

func NewImageView() *ImageView {
	return &ImageView{dirty: true}
}

func (v *ImageView) SetImage(img image.Image) {
	v.img = img
	v.dirty = true
}

// SetSize sets the area available to the image, in cells.
func (v *ImageView) SetSize(width, height int) {
	if width != v.width || height != v.height {
		v.width = width
		v.height = height
		v.dirty = true
	}
}

func (v *ImageView) View() string {
	if v.dirty {
		v.rendered = RenderHalfBlocks(v.img, v.width, v.height)
		v.dirty = false
	}
	return v.rendered
}

// RenderHalfBlocks scales img up or down to fit width x height cells, keeping
// its aspect ratio, and renders it.
func RenderHalfBlocks(img image.Image, width, height int) string {
	if img == nil || width <= 0 || height <= 0 {
		return ""
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return ""
	}

	scale := min(float64(width)/float64(bounds.Dx()), float64(height*2)/float64(bounds.Dy()))
	w := max(1, int(float64(bounds.Dx())*scale))
	h := max(1, int(float64(bounds.Dy())*scale))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)

	cellStyles := make(map[cellPair]lipgloss.Style)
	var b strings.Builder
	for y := 0; y < h; y += 2 {
		for _, run := range rowRuns(dst, y) {
			style, ok := cellStyles[run.cellPair]
			if !ok {
				style = lipgloss.NewStyle().Foreground(run.top).Background(run.bottom)
				cellStyles[run.cellPair] = style
			}
			b.WriteString(style.Render(strings.Repeat(upperHalfBlock, run.n)))
		}
		if y+2 < h {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

type cellPair struct {
	top, bottom lipgloss.Color
}

// cellRun is a stretch of adjacent cells sharing the same colors, rendered
// with a single style.
type cellRun struct {
	cellPair
	n int
}

// rowRuns groups the cells of the terminal row built from pixel rows y and
// y+1.
func rowRuns(img *image.RGBA, y int) []cellRun {
	var runs []cellRun
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	for x := 0; x < w; x++ {
		pair := cellPair{top: cellColor(img, x, y), bottom: styles.Background}
		if y+1 < h {
			pair.bottom = cellColor(img, x, y+1)
		}
		if n := len(runs); n > 0 && runs[n-1].cellPair == pair {
			runs[n-1].n++
			continue
		}
		runs = append(runs, cellRun{cellPair: pair, n: 1})
	}
	return runs
}

func cellColor(img *image.RGBA, x, y int) lipgloss.Color {
	c, ok := colorful.MakeColor(img.At(x, y))
	if !ok {
		return styles.Background
	}
	return lipgloss.Color(c.Hex())
}
