package banner

import (
	"os"

	"github.com/flopp/go-findfont"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/trailware/pngstamp/pkg/errors"
)

// defaultFonts are tried in order when no font path is configured. All are
// monospace faces commonly installed on Linux and macOS.
var defaultFonts = []string{
	"NotoSansMono-Regular.ttf",
	"DejaVuSansMono.ttf",
	"LiberationMono-Regular.ttf",
	"Menlo-Regular.ttf",
	"Consolas.ttf",
}

// LoadFace loads a TrueType font at the given point size and returns the
// face along with the resolved font path. An empty path means "use the
// default font": the system font directories are searched for the first of a
// fixed candidate list. Font problems are configuration errors and abort the
// run before any file is processed.
func LoadFace(path string, points float64) (font.Face, string, error) {
	if points <= 0 {
		return nil, "", errors.New(errors.ErrCodeInvalidConfig, "font size must be positive, got %g", points)
	}

	if path == "" {
		found, err := findDefaultFont()
		if err != nil {
			return nil, "", err
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrCodeInvalidConfig, err, "read font file %s", path)
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse font file %s", path)
	}

	return truetype.NewFace(f, &truetype.Options{
		Size:    points,
		DPI:     72,
		Hinting: font.HintingFull,
	}), path, nil
}

func findDefaultFont() (string, error) {
	for _, name := range defaultFonts {
		if path, err := findfont.Find(name); err == nil {
			return path, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidConfig,
		"no font file configured and no default monospace font found on this system")
}
