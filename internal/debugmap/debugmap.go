// Package debugmap paints a top-down picture of the nodes chosen by the last traversal,
// one color per level.
package debugmap

import (
	"image"
	"image/color"
	"image/png"
	"io"

	"voxlod/internal/vistree"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"
)

// Background is painted where no node is drawn.
var Background = color.RGBA{R: 24, G: 24, B: 28, A: 255}

var (
	fineColor   = colorful.Hcl(40, 0.6, 0.8)
	coarseColor = colorful.Hcl(260, 0.45, 0.4)
)

// LevelColor maps a level in [0, numLevels] onto the ramp from fine to coarse.
func LevelColor(level, numLevels int) color.RGBA {
	t := 0.0
	if numLevels > 0 {
		t = float64(level) / float64(numLevels)
	}
	r, g, b := fineColor.BlendHcl(coarseColor, t).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// Render paints the draw list of t into a size x size image. Each level-0 footprint is one
// cell, upscaled with nearest neighbour, and node borders are darkened.
func Render(t *vistree.Tree, size int) *image.RGBA {
	cells := 1 << t.NumLevels()
	mapDim := t.RootBounds().X1

	small := image.NewRGBA(image.Rect(0, 0, cells, cells))
	xdraw.Draw(small, small.Bounds(), image.NewUniform(Background), image.Point{}, xdraw.Src)
	for _, d := range t.DrawNodes() {
		r := image.Rect(
			d.Bounds.X0*cells/mapDim, d.Bounds.Y0*cells/mapDim,
			d.Bounds.X1*cells/mapDim, d.Bounds.Y1*cells/mapDim,
		)
		xdraw.Draw(small, r, image.NewUniform(LevelColor(d.Level, t.NumLevels())), image.Point{}, xdraw.Src)
	}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.NearestNeighbor.Scale(img, img.Bounds(), small, small.Bounds(), xdraw.Src, nil)

	for _, d := range t.DrawNodes() {
		outline(img, image.Rect(
			d.Bounds.X0*size/mapDim, d.Bounds.Y0*size/mapDim,
			d.Bounds.X1*size/mapDim, d.Bounds.Y1*size/mapDim,
		))
	}
	return img
}

// MarkViewer draws a small cross at the viewer's footprint position.
func MarkViewer(img *image.RGBA, t *vistree.Tree, pos mgl32.Vec3) {
	size := img.Bounds().Dx()
	mapDim := float32(t.RootBounds().X1)
	cx := int(pos.X() / mapDim * float32(size))
	cy := int(pos.Z() / mapDim * float32(size))
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for k := -3; k <= 3; k++ {
		setIn(img, cx+k, cy, white)
		setIn(img, cx, cy+k, white)
	}
}

func setIn(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

func outline(img *image.RGBA, r image.Rectangle) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		darken(img, x, r.Min.Y)
		darken(img, x, r.Max.Y-1)
	}
	for y := r.Min.Y + 1; y < r.Max.Y-1; y++ {
		darken(img, r.Min.X, y)
		darken(img, r.Max.X-1, y)
	}
}

func darken(img *image.RGBA, x, y int) {
	c, ok := colorful.MakeColor(img.RGBAAt(x, y))
	if !ok {
		return
	}
	h, ch, l := c.Hcl()
	r, g, b := colorful.Hcl(h, ch, l*0.6).Clamped().RGB255()
	img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
}

// WritePNG encodes img as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return errors.Wrap(err, "debugmap: encoding png")
	}
	return nil
}
