package imgdec

import "errors"

var (
	// ErrUnknownFormat is reported by an invalid Decoder: no registered
	// plugin recognized the data.
	ErrUnknownFormat = errors.New("imgdec: unknown image format")
	// ErrTooLarge is reported when an image's dimensions exceed the
	// configured ceiling.
	ErrTooLarge = errors.New("imgdec: image dimensions exceed limit")
	// ErrTruncated is reported when a header parses but the decoded
	// pixel data does not match it.
	ErrTruncated = errors.New("imgdec: truncated or corrupt image data")
)
