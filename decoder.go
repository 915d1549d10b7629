package imgdec

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

// Decoder is the caller-facing handle over one sniffed image. It owns at
// most one plugin, selected once at construction and never replaced.
//
// A Decoder whose data matched no format is invalid: every query returns
// its zero value and SetVolatile/SetNonvolatile do nothing.
//
// Decoder performs no locking. Callers sharing one Decoder between
// goroutines must serialize Bitmap, Frame, SetVolatile and SetNonvolatile.
type Decoder struct {
	plugin Plugin
	format Format
	refs   atomic.Int32
}

// releaser is implemented by plugins that hold pool registrations
type releaser interface {
	release()
}

// New sniffs data and returns a Decoder for it. data is retained so that
// purged bitmaps can be decoded again; the caller must not modify it.
func New(data []byte, opts ...Option) *Decoder {
	cfg := newConfig(opts...)
	d := &Decoder{}
	d.plugin, d.format = cfg.Registry.Sniff(data, cfg)
	d.refs.Store(1)
	return d
}

// Open reads the file at path and returns a Decoder for its contents.
// Only I/O failures are returned as errors; unrecognized data yields an
// invalid Decoder.
func Open(path string, opts ...Option) (*Decoder, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return New(data, opts...), nil
}

// From reads r to EOF and returns a Decoder for the bytes read
func From(r io.Reader, opts ...Option) (*Decoder, error) {
	if r == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return New(data, opts...), nil
}

// Ref adds a reference to d and returns it
func (d *Decoder) Ref() *Decoder {
	d.refs.Add(1)
	return d
}

// Release drops a reference. When the last reference is released the
// plugin and its bitmaps are discarded and d becomes invalid.
func (d *Decoder) Release() {
	if d.refs.Add(-1) != 0 {
		return
	}
	if r, ok := d.plugin.(releaser); ok {
		r.release()
	}
	d.plugin = nil
}

// IsValid reports whether a plugin recognized the data
func (d *Decoder) IsValid() bool {
	return d.plugin != nil
}

// Format returns the selected format, or Unknown
func (d *Decoder) Format() Format {
	if d.plugin == nil {
		return Unknown
	}
	return d.format
}

// Err reports why the Decoder is invalid or why the last decode failed
func (d *Decoder) Err() error {
	if d.plugin == nil {
		return ErrUnknownFormat
	}
	if e, ok := d.plugin.(interface{ Err() error }); ok {
		return e.Err()
	}
	return nil
}

// Size returns the image dimensions from the header
func (d *Decoder) Size() Size {
	if d.plugin == nil {
		return Size{}
	}
	return d.plugin.Size()
}

// Width returns the image width in pixels
func (d *Decoder) Width() int { return d.Size().Width }

// Height returns the image height in pixels
func (d *Decoder) Height() int { return d.Size().Height }

// Bitmap returns the decoded primary frame, or nil
func (d *Decoder) Bitmap() *Bitmap {
	if d.plugin == nil {
		return nil
	}
	return d.plugin.Bitmap()
}

// SetVolatile lets the pool reclaim the decoded pixels
func (d *Decoder) SetVolatile() {
	if d.plugin == nil {
		return
	}
	d.plugin.SetVolatile()
}

// SetNonvolatile must be checked before reading pixels of a bitmap that
// was marked volatile. When purged is true the next Bitmap or Frame call
// decodes again.
func (d *Decoder) SetNonvolatile() (ok, purged bool) {
	if d.plugin == nil {
		return false, false
	}
	return d.plugin.SetNonvolatile()
}

// Sniff reports whether the header is still accepted by the plugin
func (d *Decoder) Sniff() bool {
	if d.plugin == nil {
		return false
	}
	return d.plugin.Sniff()
}

// IsAnimated reports whether the image has more than one frame
func (d *Decoder) IsAnimated() bool {
	if d.plugin == nil {
		return false
	}
	return d.plugin.IsAnimated()
}

// LoopCount returns how many times the animation replays, 0 for forever
func (d *Decoder) LoopCount() int {
	if d.plugin == nil {
		return 0
	}
	return d.plugin.LoopCount()
}

// FrameCount returns the number of frames, 1 for static images
func (d *Decoder) FrameCount() int {
	if d.plugin == nil {
		return 0
	}
	return d.plugin.FrameCount()
}

// Frame returns frame i, or the empty frame when i is out of range
func (d *Decoder) Frame(i int) FrameDescriptor {
	if d.plugin == nil {
		return FrameDescriptor{}
	}
	return d.plugin.Frame(i)
}

// Info returns a one-line summary of the image
func (d *Decoder) Info() string {
	if d.plugin == nil {
		return Unknown.String()
	}
	return fmt.Sprintf("%s %s frames=%d animated=%t loop=%d", d.format, d.Size(), d.FrameCount(), d.IsAnimated(), d.LoopCount())
}
