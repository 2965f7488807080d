// Package compose stacks the original image above the rendered banner and
// reattaches the trailer.
//
// PNG encoders do not understand arbitrary bytes after the image stream, so
// the trailer cannot ride through an encode. The composite is encoded first
// and the trailing bytes are appended verbatim at the raw-byte level.
package compose

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"

	"github.com/trailware/pngstamp/pkg/errors"
)

// Stamp decodes the original PNG image bytes, pastes the original at the top
// of a new canvas with banner directly beneath it, encodes the result as PNG
// and appends trailing byte-for-byte. The output width is the original's
// width; the height is the sum of both heights.
func Stamp(imageBytes []byte, banner image.Image, trailing []byte) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecodeFailed, err, "decode PNG image data")
	}

	sb := src.Bounds()
	bb := banner.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, sb.Dx(), sb.Dy()+bb.Dy()))

	draw.Draw(out, image.Rect(0, 0, sb.Dx(), sb.Dy()), src, sb.Min, draw.Src)
	draw.Draw(out, image.Rect(0, sb.Dy(), sb.Dx(), sb.Dy()+bb.Dy()), banner, bb.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode composite PNG")
	}
	buf.Write(trailing)
	return buf.Bytes(), nil
}
