package imgdec

import (
	"fmt"
	"image"
	"image/gif"
	"io"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Frames with a delay at or below minFrameDelay are shown for
// defaultFrameDelay, matching what browsers do.
const (
	minFrameDelay     = 10 * time.Millisecond
	defaultFrameDelay = 100 * time.Millisecond
)

// gifPlugin decodes GIF images, animated or not. Frames are composited
// onto the logical screen so every frame is a complete image.
type gifPlugin struct {
	source
	frames    []FrameDescriptor
	loopCount int
}

// NewGIFPlugin returns a GIF plugin primed with data
func NewGIFPlugin(data []byte, cfg *Config) Plugin {
	return &gifPlugin{
		source: source{
			format:       GIF,
			magics:       []string{"GIF8?a"},
			decodeConfig: gif.DecodeConfig,
			data:         data,
			cfg:          cfg,
		},
	}
}

func (p *gifPlugin) Size() Size { return p.size() }
func (p *gifPlugin) Sniff() bool { return p.sniff() }

// decoded reports whether the frame table is known, decoding the image on
// first use. Frame count, delays and loop count survive purges, so this
// never promotes or redecodes frames.
func (p *gifPlugin) decoded() bool {
	if p.frames != nil {
		return true
	}
	return p.decodeFrames()
}

// decodeFrames makes the frames resident, decoding them on first use or
// after any of them was purged.
func (p *gifPlugin) decodeFrames() bool {
	if !p.sniff() || p.err != nil {
		return false
	}
	if p.frames != nil {
		stale := false
		for _, f := range p.frames {
			if f.Bitmap.SetNonvolatile() {
				stale = true
			}
		}
		if !stale {
			return true
		}
	}

	var g *gif.GIF
	err := p.withReader(func(r io.Reader) (err error) {
		g, err = gif.DecodeAll(r)
		return err
	})
	if err == nil {
		err = p.validate(g)
	}
	if err != nil {
		p.fail(err)
		return false
	}

	images := composite(g)
	if p.frames != nil && len(p.frames) == len(images) {
		for i, img := range images {
			p.frames[i].Bitmap.restore(img)
		}
		return true
	}

	p.frames = make([]FrameDescriptor, len(images))
	for i, img := range images {
		p.frames[i] = FrameDescriptor{
			Bitmap:   newBitmap(img, p.cfg.Pool),
			Duration: frameDelay(g, i),
		}
	}
	p.loopCount = loopCount(g)
	return true
}

func (p *gifPlugin) validate(g *gif.GIF) error {
	if len(g.Image) == 0 {
		return fmt.Errorf("gif: no frames: %w", ErrTruncated)
	}
	if g.Config.Width != p.config.Width || g.Config.Height != p.config.Height {
		return fmt.Errorf("gif: logical screen %dx%d, header %dx%d: %w",
			g.Config.Width, g.Config.Height, p.config.Width, p.config.Height, ErrTruncated)
	}
	if g.Delay != nil && len(g.Delay) != len(g.Image) {
		return fmt.Errorf("gif: mismatched image count and delay count: %d != %d", len(g.Image), len(g.Delay))
	}
	if g.Disposal != nil && len(g.Disposal) != len(g.Image) {
		return fmt.Errorf("gif: mismatched image count and disposal count: %d != %d", len(g.Image), len(g.Disposal))
	}
	if n := int64(len(g.Image)); n > 1 {
		need := n * int64(g.Config.Width) * int64(g.Config.Height) * 4
		if need > p.cfg.MaxAnimationBytes {
			return fmt.Errorf("gif: %d frames of %dx%d need %d bytes, limit %d: %w",
				n, g.Config.Width, g.Config.Height, need, p.cfg.MaxAnimationBytes, ErrTooLarge)
		}
	}
	return nil
}

// composite renders each frame over the previous canvas, applying the
// previous frame's disposal method first.
func composite(g *gif.GIF) []image.Image {
	canvas := image.NewRGBA(image.Rect(0, 0, g.Config.Width, g.Config.Height))
	out := make([]image.Image, 0, len(g.Image))
	for i, frame := range g.Image {
		var disposal byte
		if g.Disposal != nil {
			disposal = g.Disposal[i]
		}

		var previous *image.RGBA
		if disposal == gif.DisposalPrevious {
			previous = image.NewRGBA(canvas.Bounds())
			copy(previous.Pix, canvas.Pix)
		}

		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		out = append(out, imaging.Clone(canvas))

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			copy(canvas.Pix, previous.Pix)
		}
	}
	return out
}

func frameDelay(g *gif.GIF, i int) time.Duration {
	if len(g.Image) == 1 {
		return 0
	}
	var d time.Duration
	if g.Delay != nil {
		d = 10 * time.Duration(g.Delay[i]) * time.Millisecond
	}
	if d <= minFrameDelay {
		return defaultFrameDelay
	}
	return d
}

// loopCount returns the NETSCAPE loop count unchanged, 0 meaning forever.
// Without the extension the gif package reports -1, mapped to 1.
func loopCount(g *gif.GIF) int {
	if len(g.Image) == 1 {
		return 0
	}
	if g.LoopCount < 0 {
		return 1
	}
	return g.LoopCount
}

func (p *gifPlugin) Bitmap() *Bitmap {
	return p.Frame(0).Bitmap
}

func (p *gifPlugin) SetVolatile() {
	for _, f := range p.frames {
		f.Bitmap.SetVolatile()
	}
}

// SetNonvolatile makes every frame resident; purged is set if any frame
// lost its storage.
func (p *gifPlugin) SetNonvolatile() (ok, purged bool) {
	if p.frames == nil {
		return false, false
	}
	for _, f := range p.frames {
		if f.Bitmap.SetNonvolatile() {
			purged = true
		}
	}
	return true, purged
}

func (p *gifPlugin) IsAnimated() bool {
	return p.FrameCount() > 1
}

func (p *gifPlugin) LoopCount() int {
	if !p.decoded() {
		return 0
	}
	return p.loopCount
}

func (p *gifPlugin) FrameCount() int {
	if !p.decoded() {
		return 0
	}
	return len(p.frames)
}

func (p *gifPlugin) Frame(i int) FrameDescriptor {
	if !p.decodeFrames() || i < 0 || i >= len(p.frames) {
		return FrameDescriptor{}
	}
	return p.frames[i]
}

func (p *gifPlugin) release() {
	for _, f := range p.frames {
		f.Bitmap.SetNonvolatile()
	}
	p.frames = nil
}
