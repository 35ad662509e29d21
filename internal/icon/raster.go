package icon

import (
	"image"
	"image/color"
	"math"
)

// Anti-aliased scanline primitives shared by every icon variant. All
// coordinates are in pixel space; coverage is computed per pixel
// center against the analytic shape, then composited src-over. The
// color's own alpha scales the coverage, which is how the low-opacity
// smart-mode dot is drawn with the same primitives.

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func blendPixel(img *image.RGBA, x, y int, c color.RGBA, coverage float64) {
	if coverage <= 0 || !image.Pt(x, y).In(img.Bounds()) {
		return
	}

	a := coverage * float64(c.A) / 255.0
	if a <= 0 {
		return
	}

	dst := img.RGBAAt(x, y)
	inv := 1 - a
	img.SetRGBA(x, y, color.RGBA{
		R: uint8(float64(c.R)*a + float64(dst.R)*inv + 0.5),
		G: uint8(float64(c.G)*a + float64(dst.G)*inv + 0.5),
		B: uint8(float64(c.B)*a + float64(dst.B)*inv + 0.5),
		A: uint8(255*a + float64(dst.A)*inv + 0.5),
	})
}

// FillCircle draws an anti-aliased filled circle centered at (cx, cy).
func FillCircle(img *image.RGBA, cx, cy, r float64, c color.RGBA) {
	x0 := int(math.Floor(cx - r - 1))
	x1 := int(math.Ceil(cx + r + 1))
	y0 := int(math.Floor(cy - r - 1))
	y1 := int(math.Ceil(cy + r + 1))

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			dist := math.Sqrt(dx*dx + dy*dy)
			blendPixel(img, x, y, c, clamp01(r-dist+0.5))
		}
	}
}

// EllipseOutline draws an anti-aliased elliptical ring of the given
// stroke thickness centered at (cx, cy).
func EllipseOutline(img *image.RGBA, cx, cy, rx, ry, thickness float64, c color.RGBA) {
	pad := thickness + 1
	x0 := int(math.Floor(cx - rx - pad))
	x1 := int(math.Ceil(cx + rx + pad))
	y0 := int(math.Floor(cy - ry - pad))
	y1 := int(math.Ceil(cy + ry + pad))

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy

			// signed distance to the ellipse rim, approximated by
			// scaling the implicit-function residual by the smaller
			// radius; adequate at menu-bar sizes
			f := math.Sqrt((dx*dx)/(rx*rx) + (dy*dy)/(ry*ry))
			dist := math.Abs(f-1) * math.Min(rx, ry)
			blendPixel(img, x, y, c, clamp01(thickness/2-dist+0.5))
		}
	}
}

// FillBar draws an anti-aliased vertical capsule (rounded bar) of the
// given width, spanning top..bottom, centered horizontally at cx.
func FillBar(img *image.RGBA, cx, top, bottom, width float64, c color.RGBA) {
	r := width / 2
	segTop := top + r
	segBot := bottom - r
	if segBot < segTop {
		mid := (top + bottom) / 2
		segTop, segBot = mid, mid
	}

	x0 := int(math.Floor(cx - r - 1))
	x1 := int(math.Ceil(cx + r + 1))
	y0 := int(math.Floor(top - 1))
	y1 := int(math.Ceil(bottom + 1))

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			px := float64(x) + 0.5
			py := float64(y) + 0.5

			// distance to the capsule's center segment
			cyNear := math.Max(segTop, math.Min(segBot, py))
			dx := px - cx
			dy := py - cyNear
			dist := math.Sqrt(dx*dx + dy*dy)
			blendPixel(img, x, y, c, clamp01(r-dist+0.5))
		}
	}
}
