// Package trailer locates the end of a PNG's image data inside a raw byte
// buffer and separates it from the application payload appended after it.
//
// A finished PNG stream ends with the IEND chunk; everything a tool appends
// after that chunk's CRC is invisible to image decoders but survives file
// copies. This package finds that boundary so the payload can be read and
// later re-attached untouched.
package trailer

import (
	"bytes"

	"github.com/trailware/pngstamp/pkg/errors"
)

// Marker is the IEND chunk type followed by its fixed CRC. The IEND chunk
// has no data, so these 8 bytes are constant across all PNG files.
var Marker = []byte{'I', 'E', 'N', 'D', 0xAE, 0x42, 0x60, 0x82}

// ErrNoTrailer is returned when the buffer contains no IEND marker at all.
var ErrNoTrailer = errors.New(errors.ErrCodeTrailerNotFound, "no end of PNG data found")

// Split divides raw file bytes into the PNG image portion (up to and
// including the IEND marker) and the trailing payload after it.
//
// The search runs from the end of the buffer: trailing payloads may
// themselves contain the marker bytes by coincidence, so only the last
// occurrence marks the true end of image data. The two returned slices
// reference data's backing array and concatenate back to data exactly.
func Split(data []byte) (image, trailing []byte, err error) {
	i := bytes.LastIndex(data, Marker)
	if i < 0 {
		return nil, nil, ErrNoTrailer
	}
	end := i + len(Marker)
	return data[:end], data[end:], nil
}
