package imgdec

import (
	"fmt"
	"time"
)

// Plugin is the interface that every image format decoder must satisfy.
// A Plugin is primed with its source bytes when it is constructed and is
// not safe for concurrent use.
type Plugin interface {
	// Size returns the intrinsic dimensions read from the image header
	Size() Size

	// Bitmap decodes and returns the primary frame. Repeated calls return
	// the same bitmap. It returns nil if the data cannot be decoded.
	Bitmap() *Bitmap

	// SetVolatile allows the decoded pixels to be reclaimed
	SetVolatile()

	// SetNonvolatile makes the decoded pixels resident again. ok reports
	// whether there is a decoded bitmap to reclaim; purged reports whether
	// its storage was lost and must be decoded again.
	SetNonvolatile() (ok, purged bool)

	// Sniff reports whether the source bytes look like this plugin's format.
	// It must only inspect the header and must not panic on bad input.
	Sniff() bool

	// IsAnimated reports whether the image has more than one frame
	IsAnimated() bool

	// LoopCount returns how many times an animation plays; 0 means forever
	LoopCount() int

	// FrameCount returns the number of frames
	FrameCount() int

	// Frame returns frame i, or the zero FrameDescriptor if i is out of range
	Frame(i int) FrameDescriptor
}

// Size is a pair of pixel dimensions
type Size struct {
	Width  int
	Height int
}

// Empty reports whether either dimension is zero
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// FrameDescriptor is one displayable frame of an image. Static images have
// a single frame with zero duration.
type FrameDescriptor struct {
	Bitmap   *Bitmap
	Duration time.Duration
}

// IsEmpty reports whether the descriptor carries no bitmap
func (f FrameDescriptor) IsEmpty() bool {
	return f.Bitmap == nil
}
