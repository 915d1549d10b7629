package imgdec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
)

var errNoMagic = errors.New("magic bytes do not match")

// Reader pool reused across header reads and full decodes
var readerPool = sync.Pool{
	New: func() any {
		return bytes.NewReader(nil)
	},
}

// source is the state shared by the built-in plugins: the caller's bytes,
// the parsed header and the last decode error.
type source struct {
	format       Format
	magics       []string
	decodeConfig func(io.Reader) (image.Config, error)

	data []byte
	cfg  *Config

	read      bool
	config    image.Config
	headerErr error
	err       error
}

// sniff parses the header once and caches the outcome
func (s *source) sniff() bool {
	if !s.read {
		s.read = true
		s.headerErr = s.parseHeader()
		if s.headerErr != nil && !errors.Is(s.headerErr, errNoMagic) {
			s.cfg.Logger.WithError(s.headerErr).WithField("format", s.format).Debug("header rejected")
		}
	}
	return s.headerErr == nil
}

func (s *source) parseHeader() error {
	if !s.hasMagic() {
		return errNoMagic
	}
	var c image.Config
	err := s.withReader(func(r io.Reader) (err error) {
		c, err = s.decodeConfig(r)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: reading header: %w", s.format, err)
	}
	if !s.cfg.fits(c.Width, c.Height) {
		return fmt.Errorf("%s: %dx%d exceeds %dx%d: %w", s.format, c.Width, c.Height, s.cfg.MaxWidth, s.cfg.MaxHeight, ErrTooLarge)
	}
	s.config = c
	return nil
}

func (s *source) hasMagic() bool {
	for _, m := range s.magics {
		if hasMagic(m, s.data) {
			return true
		}
	}
	return false
}

func (s *source) size() Size {
	if !s.sniff() {
		return Size{}
	}
	return Size{Width: s.config.Width, Height: s.config.Height}
}

// withReader runs fn over a pooled reader of the source bytes. A panic in
// fn is converted into an error.
func (s *source) withReader(fn func(io.Reader) error) (err error) {
	r := readerPool.Get().(*bytes.Reader)
	r.Reset(s.data)
	defer func() {
		r.Reset(nil)
		readerPool.Put(r)
		if v := recover(); v != nil {
			err = fmt.Errorf("%w: decoder panic: %v", ErrTruncated, v)
		}
	}()
	return fn(r)
}

// checkBounds verifies that decoded pixels match the header
func (s *source) checkBounds(img image.Image) error {
	b := img.Bounds()
	if b.Dx() != s.config.Width || b.Dy() != s.config.Height {
		return fmt.Errorf("%s: decoded %dx%d, header %dx%d: %w", s.format, b.Dx(), b.Dy(), s.config.Width, s.config.Height, ErrTruncated)
	}
	return nil
}

func (s *source) fail(err error) {
	s.err = err
	s.cfg.Logger.WithError(err).WithField("format", s.format).Debug("decode failed")
}

// Err returns the header or decode error, if any
func (s *source) Err() error {
	if s.headerErr != nil {
		return s.headerErr
	}
	return s.err
}
