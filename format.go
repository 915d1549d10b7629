package imgdec

import "fmt"

// Format identifies the image format a Decoder selected
type Format int

const (
	Unknown Format = iota
	PNG
	GIF
	BMP
	JPEG
	WebP
	TIFF
)

var formatNames = map[Format]string{
	Unknown: "unknown",
	PNG:     "png",
	GIF:     "gif",
	BMP:     "bmp",
	JPEG:    "jpeg",
	WebP:    "webp",
	TIFF:    "tiff",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Formats returns the built-in formats in dispatch priority order
func Formats() []Format {
	return []Format{PNG, GIF, BMP, JPEG, WebP, TIFF}
}

// hasMagic reports whether data starts with magic, where '?' matches any byte
func hasMagic(magic string, data []byte) bool {
	if len(data) < len(magic) {
		return false
	}
	for i := 0; i < len(magic); i++ {
		if magic[i] != data[i] && magic[i] != '?' {
			return false
		}
	}
	return true
}
