package icon

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"

	"voxbar/internal/state"
)

const (
	// Size is the logical glyph size; Scale is the raster multiplier
	// for retina menu bars, so buffers are Size*Scale square.
	Size  = 16
	Scale = 2

	// FrameCount is the animation cycle length.
	FrameCount = 16
)

// Key identifies one rendered frame. Every input that affects pixel
// output must be part of the key; omitting one serves stale frames
// from the cache.
type Key struct {
	State state.VisualState
	Frame int
	Mode  state.Mode
	Smart bool
}

var stateColors = map[state.VisualState]color.RGBA{
	state.VisualIdle:       {R: 142, G: 142, B: 147, A: 255},
	state.VisualDisabled:   {R: 90, G: 90, B: 95, A: 255},
	state.VisualError:      {R: 255, G: 69, B: 58, A: 255},
	state.VisualSpeaking:   {R: 48, G: 209, B: 88, A: 255},
	state.VisualProcessing: {R: 255, G: 159, B: 10, A: 255},
}

// listening is the only state whose hue tracks the mode
var listeningColors = map[state.Mode]color.RGBA{
	state.ModeGeneral: {R: 10, G: 132, B: 255, A: 255},
	state.ModeMusic:   {R: 191, G: 90, B: 242, A: 255},
	state.ModeClaude:  {R: 218, G: 119, B: 86, A: 255}, // terracotta
}

// Renderer produces status glyphs. Rendering is a pure function of
// the key, so frames are cached both as images and as encoded PNGs.
type Renderer struct {
	mu   sync.Mutex
	imgs map[Key]*image.RGBA
	pngs map[Key][]byte
}

func NewRenderer() *Renderer {
	return &Renderer{
		imgs: make(map[Key]*image.RGBA),
		pngs: make(map[Key][]byte),
	}
}

// Render returns the frame for k. The returned image is shared cache
// state; callers must not mutate it.
func (r *Renderer) Render(k Key) *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()

	if img, ok := r.imgs[k]; ok {
		return img
	}

	img := render(k)
	r.imgs[k] = img
	return img
}

// PNG returns the frame for k encoded as PNG, for systray.SetIcon.
func (r *Renderer) PNG(k Key) []byte {
	r.mu.Lock()
	if data, ok := r.pngs[k]; ok {
		r.mu.Unlock()
		return data
	}
	r.mu.Unlock()

	img := r.Render(k)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		// encoding an in-memory RGBA cannot fail in practice
		return nil
	}

	r.mu.Lock()
	r.pngs[k] = buf.Bytes()
	r.mu.Unlock()
	return buf.Bytes()
}

func glyphColor(k Key) color.RGBA {
	if k.State == state.VisualListening {
		if c, ok := listeningColors[k.Mode]; ok {
			return c
		}
		return listeningColors[state.ModeGeneral]
	}
	if c, ok := stateColors[k.State]; ok {
		return c
	}
	return stateColors[state.VisualIdle]
}

// barPhase returns the animation displacement in [-1, 1] for bar i at
// frame f. Modes differ by phase function, not by shape.
func barPhase(mode state.Mode, i, f int) float64 {
	theta := 2 * math.Pi * float64(f) / FrameCount

	switch mode {
	case state.ModeClaude:
		// seesaw: outer bars oppose, center bar breathes
		switch i {
		case 0:
			return math.Sin(theta)
		case 2:
			return math.Sin(theta + math.Pi)
		default:
			return 0.15 * math.Sin(theta)
		}
	case state.ModeMusic:
		// absolute-value bounce, double frequency, offset per bar
		return 2*math.Abs(math.Sin(theta*2+float64(i)*1.3)) - 1
	default:
		// smooth sine, phase-offset by bar index
		return math.Sin(theta + float64(i)*2*math.Pi/3)
	}
}

func render(k Key) *image.RGBA {
	px := Size * Scale
	img := image.NewRGBA(image.Rect(0, 0, px, px))

	c := glyphColor(k)
	s := float64(Scale)
	cx := float64(px) / 2
	cy := float64(px) / 2

	switch k.State {
	case state.VisualIdle, state.VisualDisabled:
		// the "eye": ellipse outline with a filled pupil
		EllipseOutline(img, cx, cy, 6*s, 4*s, 1.2*s, c)
		FillCircle(img, cx, cy, 1.8*s, c)

	case state.VisualError:
		FillCircle(img, cx, cy, 5*s, c)

	default:
		// three vertical bars; per-mode phase only while listening
		phaseMode := state.ModeGeneral
		if k.State == state.VisualListening {
			phaseMode = k.Mode
		}

		const (
			barWidth = 3.0
			baseHalf = 3.0
			amp      = 2.5
		)
		centers := [3]float64{4, 8, 12}

		for i, bx := range centers {
			hh := (baseHalf + amp*barPhase(phaseMode, i, k.Frame)) * s
			min := 1.0 * s
			if hh < min {
				hh = min
			}
			FillBar(img, bx*s, cy-hh, cy+hh, barWidth*s, c)
		}
	}

	if k.Smart {
		dot := c
		dot.A = 115
		FillCircle(img, cx, float64(px)-1.5*s, 1.2*s, dot)
	}

	return img
}
