package imgdec

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertInvalid(t *testing.T, d *Decoder) {
	t.Helper()
	assert.False(t, d.IsValid())
	assert.Equal(t, Unknown, d.Format())
	assert.ErrorIs(t, d.Err(), ErrUnknownFormat)
	assert.Equal(t, Size{}, d.Size())
	assert.Equal(t, 0, d.Width())
	assert.Equal(t, 0, d.Height())
	assert.Nil(t, d.Bitmap())
	assert.False(t, d.Sniff())
	assert.False(t, d.IsAnimated())
	assert.Equal(t, 0, d.LoopCount())
	assert.Equal(t, 0, d.FrameCount())
	assert.True(t, d.Frame(0).IsEmpty())
	assert.Equal(t, FrameDescriptor{}, d.Frame(0))
	d.SetVolatile()
	ok, purged := d.SetNonvolatile()
	assert.False(t, ok)
	assert.False(t, purged)
	assert.Equal(t, "unknown", d.Info())
}

func TestDecoderInvalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "nil", data: nil},
		{name: "malformed 10 bytes", data: []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09}},
		{name: "text", data: []byte("not an image at all")},
		{name: "oversized png", data: pngHeader(100000, 100000)},
		{name: "oversized gif", data: gifHeader(60000, 60000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewPool()
			assertInvalid(t, New(tt.data, WithPool(pool)))
			assert.Equal(t, 0, pool.Len())
		})
	}
}

func TestDecoderFormats(t *testing.T) {
	img := createTestImage(8, 6)
	tests := []struct {
		name     string
		data     []byte
		format   Format
		lossless bool
	}{
		{name: "png", data: encodePNG(t, img), format: PNG, lossless: true},
		{name: "bmp", data: encodeBMP(t, img), format: BMP, lossless: true},
		{name: "jpeg", data: encodeJPEG(t, img), format: JPEG},
		{name: "tiff", data: encodeTIFF(t, img), format: TIFF, lossless: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Less(t, len(tt.data), 1024)

			d := New(tt.data, WithPool(NewPool()))
			require.True(t, d.IsValid())
			assert.Equal(t, tt.format, d.Format())
			assert.True(t, d.Sniff())
			assert.Equal(t, Size{Width: 8, Height: 6}, d.Size())
			assert.Equal(t, 8, d.Width())
			assert.Equal(t, 6, d.Height())

			bm := d.Bitmap()
			require.NotNil(t, bm)
			require.NoError(t, d.Err())
			assert.Equal(t, d.Size(), bm.Size())
			assert.Same(t, bm, d.Bitmap(), "Bitmap must be idempotent")
			if tt.lossless {
				assert.True(t, pixelsEqual(img, bm.Image()))
			}

			assert.False(t, d.IsAnimated())
			assert.Equal(t, 1, d.FrameCount())
			assert.Equal(t, 0, d.LoopCount())
			frame := d.Frame(0)
			assert.Same(t, bm, frame.Bitmap)
			assert.Zero(t, frame.Duration)
			assert.True(t, pixelsEqual(bm.Image(), frame.Bitmap.Image()))

			assert.True(t, d.Frame(1).IsEmpty())
			assert.True(t, d.Frame(-1).IsEmpty())
		})
	}
}

func TestDecoderFourFormatsAndMalformed(t *testing.T) {
	img := createTestImage(8, 8)
	inputs := [][]byte{
		encodePNG(t, img),
		singleFrameGIF(t),
		encodeBMP(t, img),
		encodeJPEG(t, img),
	}
	seen := map[Format]bool{}
	for _, data := range inputs {
		require.Less(t, len(data), 1024)
		d := New(data, WithPool(NewPool()))
		require.True(t, d.IsValid())
		assert.False(t, d.Size().Empty())
		assert.Equal(t, 1, d.FrameCount())
		seen[d.Format()] = true
	}
	assert.Len(t, seen, 4)

	assert.False(t, New([]byte("0123456789")).IsValid())
}

func TestDecoderWebP(t *testing.T) {
	d := New(losslessWebP, WithPool(NewPool()))
	require.True(t, d.IsValid())
	assert.Equal(t, WebP, d.Format())
	assert.Equal(t, Size{Width: 3, Height: 2}, d.Size())

	bm := d.Bitmap()
	require.NotNil(t, bm, "decode error: %v", d.Err())
	assert.NoError(t, d.Err())
	assert.Equal(t, Size{Width: 3, Height: 2}, bm.Size())
	for y := range 2 {
		for x := range 3 {
			assert.Equal(t, webpColor, nrgbaAt(bm.Image(), x, y), "pixel %d,%d", x, y)
		}
	}
	assert.Same(t, bm, d.Frame(0).Bitmap)
}

func TestDecoderWebPHeaderOnly(t *testing.T) {
	d := New(webpHeader(20, 10), WithPool(NewPool()))
	require.True(t, d.IsValid())
	assert.Equal(t, WebP, d.Format())
	assert.Equal(t, Size{Width: 20, Height: 10}, d.Size())

	// The pixel data is missing
	assert.Nil(t, d.Bitmap())
	assert.Error(t, d.Err())
	assert.True(t, d.Frame(0).IsEmpty())
	assert.Equal(t, 1, d.FrameCount())
}

func TestDecoderTruncated(t *testing.T) {
	data := encodePNG(t, createTestImage(32, 32))
	d := New(data[:len(data)/2], WithPool(NewPool()))
	require.True(t, d.IsValid(), "header is intact")
	assert.Equal(t, Size{Width: 32, Height: 32}, d.Size())

	assert.Nil(t, d.Bitmap())
	assert.Error(t, d.Err())
	assert.Nil(t, d.Bitmap(), "failure is sticky")
	ok, purged := d.SetNonvolatile()
	assert.False(t, ok)
	assert.False(t, purged)
}

func TestDecoderMaxSize(t *testing.T) {
	data := encodePNG(t, createTestImage(8, 8))

	tests := []struct {
		name   string
		width  int
		height int
		valid  bool
	}{
		{name: "default", valid: true},
		{name: "exact", width: 8, height: 8, valid: true},
		{name: "width below", width: 7, height: 8, valid: false},
		{name: "height below", width: 8, height: 7, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(data, WithMaxSize(tt.width, tt.height), WithPool(NewPool()))
			assert.Equal(t, tt.valid, d.IsValid())
		})
	}

	// Raising the ceiling admits a large header but the missing pixel data
	// still fails without allocating the full image
	d := New(gifHeader(60000, 60000), WithMaxSize(65535, 65535), WithPool(NewPool()))
	require.True(t, d.IsValid())
	assert.Equal(t, Size{Width: 60000, Height: 60000}, d.Size())
	assert.Nil(t, d.Bitmap())
}

func TestDecoderVolatileRoundTrip(t *testing.T) {
	pool := NewPool()
	img := createTestImage(8, 8)
	d := New(encodePNG(t, img), WithPool(pool))
	require.True(t, d.IsValid())

	// Nothing decoded yet
	ok, purged := d.SetNonvolatile()
	assert.False(t, ok)
	assert.False(t, purged)

	bm := d.Bitmap()
	require.NotNil(t, bm)
	before := bm.Image()

	d.SetVolatile()
	assert.Equal(t, 1, pool.Len())
	assert.Nil(t, bm.Image())

	ok, purged = d.SetNonvolatile()
	assert.True(t, ok)
	assert.False(t, purged)
	assert.Same(t, before, bm.Image())
	assert.True(t, pixelsEqual(img, bm.Image()))
	assert.Equal(t, 0, pool.Len())
}

func TestDecoderPurgeRedecodes(t *testing.T) {
	pool := NewPool()
	img := createTestImage(8, 8)
	d := New(encodePNG(t, img), WithPool(pool))
	bm := d.Bitmap()
	require.NotNil(t, bm)

	d.SetVolatile()
	assert.Equal(t, int64(8*8*4), pool.Purge())

	ok, purged := d.SetNonvolatile()
	assert.True(t, ok)
	assert.True(t, purged)
	assert.Nil(t, bm.Image(), "purged pixels are gone until decoded again")

	again := d.Bitmap()
	assert.Same(t, bm, again)
	assert.True(t, pixelsEqual(img, again.Image()))
	assert.True(t, pixelsEqual(img, d.Frame(0).Bitmap.Image()))
}

func TestDecoderBitmapPromotesVolatile(t *testing.T) {
	pool := NewPool()
	img := createTestImage(4, 4)
	d := New(encodeBMP(t, img), WithPool(pool))
	bm := d.Bitmap()
	require.NotNil(t, bm)

	d.SetVolatile()
	require.Equal(t, 1, pool.Len())

	got := d.Bitmap()
	assert.Same(t, bm, got)
	assert.False(t, got.IsVolatile())
	assert.True(t, pixelsEqual(img, got.Image()))
	assert.Equal(t, 0, pool.Len())

	// Promotion after a purge decodes again
	d.SetVolatile()
	pool.Purge()
	got = d.Bitmap()
	assert.True(t, pixelsEqual(img, got.Image()))
}

func TestDecoderRelease(t *testing.T) {
	pool := NewPool()
	d := New(encodePNG(t, createTestImage(4, 4)), WithPool(pool))
	require.NotNil(t, d.Bitmap())
	d.SetVolatile()
	require.Equal(t, 1, pool.Len())

	shared := d.Ref()
	assert.Same(t, d, shared)
	shared.Release()
	assert.True(t, d.IsValid())
	assert.Equal(t, 1, pool.Len())

	d.Release()
	assertInvalid(t, d)
	assert.Equal(t, 0, pool.Len())
}

func TestDecoderErrorBeforeDecode(t *testing.T) {
	d := New(encodePNG(t, createTestImage(2, 2)), WithPool(NewPool()))
	assert.NoError(t, d.Err())
	assert.Equal(t, "png 2x2 frames=1 animated=false loop=0", d.Info())
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, createTestImage(3, 5)), 0o644))

	d, err := Open(path, WithPool(NewPool()))
	require.NoError(t, err)
	assert.True(t, d.IsValid())
	assert.Equal(t, Size{Width: 3, Height: 5}, d.Size())

	_, err = Open("")
	assert.Error(t, err)

	_, err = Open(filepath.Join(dir, "missing.png"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	junk := filepath.Join(dir, "junk.bin")
	require.NoError(t, os.WriteFile(junk, []byte("junk"), 0o644))
	d, err = Open(junk)
	require.NoError(t, err)
	assert.False(t, d.IsValid())
}

func TestFrom(t *testing.T) {
	d, err := From(bytes.NewReader(encodeTIFF(t, createTestImage(2, 3))), WithPool(NewPool()))
	require.NoError(t, err)
	assert.Equal(t, TIFF, d.Format())

	_, err = From(nil)
	assert.Error(t, err)
}

func TestDecoderLogging(t *testing.T) {
	handler := memory.New()
	logger := &log.Logger{Handler: handler, Level: log.DebugLevel}

	New([]byte("nothing to see"), WithLogger(logger))
	require.NotEmpty(t, handler.Entries)
	last := handler.Entries[len(handler.Entries)-1]
	assert.Equal(t, "no format matched", last.Message)

	handler.Entries = nil
	New(pngHeader(100000, 100000), WithLogger(logger))
	var rejected bool
	for _, e := range handler.Entries {
		if e.Message == "header rejected" {
			rejected = true
			assert.Equal(t, PNG, e.Fields["format"])
		}
	}
	assert.True(t, rejected)
}
