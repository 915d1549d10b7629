package imgdec

import (
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// codec describes a single-frame format backed by a Go decoder
type codec struct {
	format       Format
	magics       []string
	decodeConfig func(io.Reader) (image.Config, error)
	decode       func(io.Reader) (image.Image, error)
}

var codecs = map[Format]codec{
	PNG: {
		format:       PNG,
		magics:       []string{"\x89PNG\r\n\x1a\n"},
		decodeConfig: png.DecodeConfig,
		decode:       png.Decode,
	},
	BMP: {
		format:       BMP,
		magics:       []string{"BM????\x00\x00\x00\x00"},
		decodeConfig: bmp.DecodeConfig,
		decode:       bmp.Decode,
	},
	JPEG: {
		format:       JPEG,
		magics:       []string{"\xff\xd8"},
		decodeConfig: jpeg.DecodeConfig,
		decode:       jpeg.Decode,
	},
	WebP: {
		format:       WebP,
		magics:       []string{"RIFF????WEBPVP8"},
		decodeConfig: webp.DecodeConfig,
		decode:       webp.Decode,
	},
	TIFF: {
		format:       TIFF,
		magics:       []string{"II*\x00", "MM\x00*"},
		decodeConfig: tiff.DecodeConfig,
		decode:       tiff.Decode,
	},
}

func builtinFactory(f Format) Factory {
	if f == GIF {
		return NewGIFPlugin
	}
	c := codecs[f]
	return func(data []byte, cfg *Config) Plugin {
		return newStaticPlugin(c, data, cfg)
	}
}

// staticPlugin decodes single-frame formats
type staticPlugin struct {
	source
	decode func(io.Reader) (image.Image, error)
	bitmap *Bitmap
}

func newStaticPlugin(c codec, data []byte, cfg *Config) *staticPlugin {
	return &staticPlugin{
		source: source{
			format:       c.format,
			magics:       c.magics,
			decodeConfig: c.decodeConfig,
			data:         data,
			cfg:          cfg,
		},
		decode: c.decode,
	}
}

func (p *staticPlugin) Size() Size { return p.size() }
func (p *staticPlugin) Sniff() bool { return p.sniff() }

// Bitmap decodes on first use. A volatile bitmap is made resident again
// and a purged one is decoded again from the retained source bytes.
func (p *staticPlugin) Bitmap() *Bitmap {
	if !p.sniff() || p.err != nil {
		return nil
	}
	if p.bitmap != nil {
		p.bitmap.SetNonvolatile()
		if !p.bitmap.IsPurged() {
			return p.bitmap
		}
	}

	var img image.Image
	err := p.withReader(func(r io.Reader) (err error) {
		img, err = p.decode(r)
		return err
	})
	if err == nil {
		err = p.checkBounds(img)
	}
	if err != nil {
		p.fail(err)
		return nil
	}

	if p.bitmap != nil {
		p.bitmap.restore(img)
	} else {
		p.bitmap = newBitmap(img, p.cfg.Pool)
	}
	return p.bitmap
}

func (p *staticPlugin) SetVolatile() {
	p.bitmap.SetVolatile()
}

func (p *staticPlugin) SetNonvolatile() (ok, purged bool) {
	if p.bitmap == nil {
		return false, false
	}
	return true, p.bitmap.SetNonvolatile()
}

func (p *staticPlugin) IsAnimated() bool { return false }
func (p *staticPlugin) LoopCount() int { return 0 }
func (p *staticPlugin) FrameCount() int { return 1 }

func (p *staticPlugin) Frame(i int) FrameDescriptor {
	if i != 0 {
		return FrameDescriptor{}
	}
	return FrameDescriptor{Bitmap: p.Bitmap()}
}

func (p *staticPlugin) release() {
	p.bitmap.SetNonvolatile()
	p.bitmap = nil
}
