/*
Package imgdec decodes images through a single facade that hides which
format decoder is doing the work.

A Decoder sniffs the bytes it is given against every registered format, in
a fixed priority order, and keeps the first plugin whose header check
accepts them. Built-in plugins cover PNG, GIF, BMP, JPEG, WebP and TIFF.
Data that no plugin recognizes produces an invalid Decoder rather than an
error: every query on it returns a zero value.

Basic Usage:

	dec := imgdec.New(data)
	if !dec.IsValid() {
	    log.Fatal(dec.Err())
	}
	fmt.Println(dec.Format(), dec.Size())
	bmp := dec.Bitmap()

Animation:

	// Static images are a single frame with zero duration
	for i := 0; i < dec.FrameCount(); i++ {
	    frame := dec.Frame(i)
	    show(frame.Bitmap.Image(), frame.Duration)
	}
	// LoopCount 0 means loop forever
	_ = dec.LoopCount()

Volatile Bitmaps:

Decoded pixels can be handed back to a Pool while they are not needed. The
pool may purge them at any time; the source bytes are retained so that the
image can be decoded again.

	dec.SetVolatile()
	imgdec.DefaultPool.Purge() // memory pressure
	if ok, purged := dec.SetNonvolatile(); ok && purged {
	    // pixels were dropped, Bitmap decodes again
	}
	img := dec.Bitmap().Image()

Limits:

Headers larger than 16384 pixels on either axis are rejected while
sniffing. Use WithMaxSize to change the ceiling.

	dec := imgdec.New(data, imgdec.WithMaxSize(4096, 4096))

Animations whose composited frames together exceed 256 MiB fail to decode
with ErrTooLarge. WithMaxAnimationBytes changes the budget.
*/
package imgdec
