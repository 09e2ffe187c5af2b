package report

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"

	"github.com/fakeyudi/annotate/internal/record"
)

// Style controls how boxes are drawn.
type Style struct {
	Color     color.RGBA
	LineWidth int
	Labels    bool // caption each box with "id:score"
}

// encodable lists the extensions imaging.Save can write. Other inputs are
// rendered as PNG.
var encodable = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true,
}

// VisualPath returns where the rendering of relPath goes under visualDir.
func VisualPath(visualDir, relPath string) string {
	p := filepath.Join(visualDir, filepath.FromSlash(relPath))
	if ext := filepath.Ext(p); !encodable[strings.ToLower(ext)] {
		p = strings.TrimSuffix(p, ext) + ".png"
	}
	return p
}

// RenderImage draws dets onto a copy of the image at imagePath and saves it
// to outPath, creating parent directories.
func RenderImage(imagePath string, dets []*record.Detection, outPath string, st Style) error {
	src, err := imaging.Open(imagePath)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	dst := imaging.Clone(src)

	for _, d := range dets {
		r := pixelRect(d.BBox.XMin, d.BBox.YMin, d.BBox.XMax, d.BBox.YMax)
		strokeRect(dst, r, st.Color, max(st.LineWidth, 1))
		if st.Labels {
			drawLabel(dst, r.Min, fmt.Sprintf("%d:%.2f", d.ID, d.Score), st.Color)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := imaging.Save(dst, outPath); err != nil {
		return fmt.Errorf("failed to save visualization: %w", err)
	}
	return nil
}

// RenderAll renders every readable result with a record into visualDir and
// returns the written paths in result order.
func RenderAll(ctx context.Context, results []ImageResult, visualDir string, st Style, concurrency int) ([]string, error) {
	written := make([]string, len(results))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, r := range results {
		if r.Err != nil || (r.Missing && !r.Fixed) {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out := VisualPath(visualDir, r.Entry.RelativePath)
			if err := RenderImage(r.Entry.ImagePath, r.Detections, out, st); err != nil {
				return fmt.Errorf("%s: %w", r.Entry.RelativePath, err)
			}
			written[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	paths := written[:0]
	for _, p := range written {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// pixelRect covers every pixel the box touches.
func pixelRect(xmin, ymin, xmax, ymax float64) image.Rectangle {
	return image.Rect(
		int(math.Floor(xmin)), int(math.Floor(ymin)),
		int(math.Ceil(xmax)), int(math.Ceil(ymax)),
	)
}

// strokeRect draws the outline of r, width pixels thick, inside r.
func strokeRect(dst *image.NRGBA, r image.Rectangle, c color.Color, width int) {
	width = min(width, (r.Dx()+1)/2, (r.Dy()+1)/2)
	fill := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width),
		image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y),
		image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), fill, image.Point{}, draw.Src)
	}
}

func drawLabel(dst *image.NRGBA, at image.Point, text string, c color.Color) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(at.X+2, at.Y+2+face.Ascent),
	}
	d.DrawString(text)
}
