package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gosimple/slug"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// maxRasterDim caps the raster size so a huge die cannot blow up the RGBA
// allocation. 8192 matches common texture limits and is plenty for a
// snapshot.
const maxRasterDim = 8192

// Rasterize renders SVG data to an RGBA image.
//
// Sizing rules:
//   - targetW == 0 && targetH == 0: use the SVG viewBox dimensions
//   - only one of targetW/targetH > 0: scale by it keeping aspect ratio
//   - both > 0: fit into the box keeping aspect ratio
func Rasterize(svgData []byte, targetW, targetH int) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, fmt.Errorf("reading svg: %w", err)
	}

	intrW := int(math.Ceil(icon.ViewBox.W))
	intrH := int(math.Ceil(icon.ViewBox.H))
	if intrW <= 0 || intrH <= 0 {
		return nil, fmt.Errorf("svg has no usable viewBox")
	}

	w, h := intrW, intrH
	switch {
	case targetW <= 0 && targetH <= 0:
		// keep intrinsic size
	case targetW > 0 && targetH <= 0:
		w = targetW
		h = int(math.Round(float64(w) * float64(intrH) / float64(intrW)))
	case targetH > 0 && targetW <= 0:
		h = targetH
		w = int(math.Round(float64(h) * float64(intrW) / float64(intrH)))
	default:
		scale := math.Min(float64(targetW)/float64(intrW), float64(targetH)/float64(intrH))
		w = int(math.Round(float64(intrW) * scale))
		h = int(math.Round(float64(intrH) * scale))
	}
	w = max(w, 1)
	h = max(h, 1)

	if w > maxRasterDim || h > maxRasterDim {
		s := math.Min(float64(maxRasterDim)/float64(w), float64(maxRasterDim)/float64(h))
		w = max(int(math.Round(float64(w)*s)), 1)
		h = max(int(math.Round(float64(h)*s)), 1)
	}

	icon.SetTarget(0, 0, float64(w), float64(h))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)
	return dst, nil
}

// WritePNG encodes the image as PNG.
func WritePNG(out io.Writer, img image.Image) error {
	return imaging.Encode(out, img, imaging.PNG)
}

// SavePNG writes the image to a file, creating parent directories.
func SavePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WritePNG(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// FileName derives a snapshot file name from a design name.
func FileName(design string) string {
	name := slug.Make(design)
	if name == "" {
		name = "design"
	}
	if !strings.HasSuffix(name, ".png") {
		name += ".png"
	}
	return name
}
