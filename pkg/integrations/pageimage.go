package integrations

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// PageSettings controls how a page is prepared for display.
type PageSettings struct {
	MaxWidth  int     // Maximum width in pixels, 0 for unbounded
	MaxHeight int     // Maximum height in pixels, 0 for unbounded
	Grayscale bool    // Convert to grayscale
	Contrast  float64 // Contrast adjustment (1.0 = no change)
}

// PageProcessor decodes page images and fits them to a display area.
type PageProcessor struct {
	settings PageSettings
}

func NewPageProcessor(settings PageSettings) *PageProcessor {
	if settings.Contrast <= 0 {
		settings.Contrast = 1.0
	}
	return &PageProcessor{settings: settings}
}

// DecodePage decodes a jpeg, png, gif or webp page.
func DecodePage(content []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Process decodes input and applies the processor settings.
func (p *PageProcessor) Process(input io.Reader) (image.Image, error) {
	img, _, err := image.Decode(input)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return p.Apply(img), nil
}

// Apply resizes, then adjusts color of an already decoded page.
func (p *PageProcessor) Apply(img image.Image) image.Image {
	processed := p.Fit(img, p.settings.MaxWidth, p.settings.MaxHeight)

	if p.settings.Grayscale {
		processed = toGrayscale(processed)
	}
	if p.settings.Contrast != 1.0 {
		processed = adjustContrast(processed, p.settings.Contrast)
	}
	return processed
}

// Fit scales img down to fit within maxWidth x maxHeight, keeping the aspect
// ratio. Images that already fit are returned unchanged.
func (p *PageProcessor) Fit(img image.Image, maxWidth, maxHeight int) image.Image {
	bounds := img.Bounds()
	newWidth, newHeight := FitDimensions(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)
	if newWidth == bounds.Dx() && newHeight == bounds.Dy() {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// FitDimensions calculates the new dimensions while maintaining aspect ratio
func FitDimensions(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return width, height
	}
	if maxWidth <= 0 {
		maxWidth = width
	}
	if maxHeight <= 0 {
		maxHeight = height
	}
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	widthScale := float64(maxWidth) / float64(width)
	heightScale := float64(maxHeight) / float64(height)

	// Use the smaller scale to ensure image fits within bounds
	scale := widthScale
	if heightScale < widthScale {
		scale = heightScale
	}

	newWidth := max(1, int(float64(width)*scale))
	newHeight := max(1, int(float64(height)*scale))
	return newWidth, newHeight
}

func toGrayscale(img image.Image) image.Image {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}

	return gray
}

func adjustContrast(img image.Image, factor float64) image.Image {
	bounds := img.Bounds()
	adjusted := image.NewRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			adjusted.SetRGBA(x, y, color.RGBA{
				R: adjustChannel(uint8(r>>8), factor),
				G: adjustChannel(uint8(g>>8), factor),
				B: adjustChannel(uint8(b>>8), factor),
				A: uint8(a >> 8),
			})
		}
	}

	return adjusted
}

// adjustChannel stretches a channel away from middle gray.
func adjustChannel(value uint8, factor float64) uint8 {
	adjusted := (float64(value)-128)*factor + 128

	if adjusted < 0 {
		return 0
	}
	if adjusted > 255 {
		return 255
	}
	return uint8(adjusted)
}
