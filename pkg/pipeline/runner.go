// Package pipeline runs the stamping pipeline over single files and
// directories.
//
// Per file the stages are: split the trailer off the PNG bytes, format the
// trailer text through the rule table, rasterize the text at the image's
// width, composite and write. The Runner holds only read-only shared state
// (rule table, font, cache handle), so files are processed one after another
// with nothing carried between them.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/trailware/pngstamp/pkg/banner"
	"github.com/trailware/pngstamp/pkg/cache"
	"github.com/trailware/pngstamp/pkg/compose"
	"github.com/trailware/pngstamp/pkg/errors"
	"github.com/trailware/pngstamp/pkg/format"
	"github.com/trailware/pngstamp/pkg/pattern"
	"github.com/trailware/pngstamp/pkg/trailer"
)

// Runner executes the stamping pipeline. Both single-file and directory
// modes go through the same per-file path.
type Runner struct {
	Formatter *format.Formatter
	Raster    *banner.Rasterizer
	Cache     cache.Cache
	Logger    *log.Logger
	Suffix    string

	// sig folds the rule table and render settings into the cache key so a
	// changed table or font invalidates prior entries.
	sig string
}

// Stats summarizes a run.
type Stats struct {
	Processed int           // files written
	Skipped   int           // files that failed per-file and were passed over
	CacheHits int           // outputs served from the cache
	Elapsed   time.Duration // wall time of the whole run
}

// NewRunner creates a runner. fontID identifies the font the rasterizer was
// built with (the resolved font path) so the cache distinguishes outputs
// rendered with different fonts. A nil cache disables caching; a nil logger
// falls back to log.Default().
func NewRunner(f *format.Formatter, r *banner.Rasterizer, c cache.Cache, logger *log.Logger, suffix, fontID string) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Formatter: f,
		Raster:    r,
		Cache:     c,
		Logger:    logger,
		Suffix:    suffix,
		sig:       renderSignature(f.Table, r.Points, fontID),
	}
}

// renderSignature hashes everything besides the input bytes that shapes an
// output: the rule table, the font point size and the font itself.
func renderSignature(t pattern.Table, points float64, fontID string) string {
	var b strings.Builder
	for _, p := range t {
		b.WriteString(p.Source)
		b.WriteByte('\n')
		b.WriteString(p.Template)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "points=%g\nfont=%s", points, fontID)
	return cache.Hash([]byte(b.String()))
}

// Run dispatches on whether in is a file or a directory. For a single file
// a per-file structural failure (missing trailer, undecodable image) is
// reported and counted as skipped, not returned as an error, matching the
// directory-mode policy.
func (r *Runner) Run(ctx context.Context, in, out string) (Stats, error) {
	start := time.Now()

	info, err := os.Stat(in)
	if err != nil {
		return Stats{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "stat input %s", in)
	}

	var stats Stats
	if info.IsDir() {
		stats, err = r.processDir(ctx, in, out)
	} else {
		stats, err = r.processSingle(ctx, in, out)
	}
	stats.Elapsed = time.Since(start)
	return stats, err
}

func (r *Runner) processSingle(ctx context.Context, in, out string) (Stats, error) {
	cached, err := r.ProcessFile(ctx, in, out)
	if err != nil {
		if ctx.Err() != nil {
			return Stats{}, ctx.Err()
		}
		if errors.Recoverable(err) {
			r.Logger.Warn("skipping file", "file", in, "reason", errors.UserMessage(err))
			return Stats{Skipped: 1}, nil
		}
		return Stats{}, err
	}
	stats := Stats{Processed: 1}
	if cached {
		stats.CacheHits = 1
	}
	return stats, nil
}

// processDir stamps every direct .png child of in into out. Subdirectories
// are not traversed. Per-file failures are logged and skipped; only path
// problems abort the batch.
func (r *Runner) processDir(ctx context.Context, in, out string) (Stats, error) {
	if err := ensureDir(out); err != nil {
		return Stats{}, err
	}

	entries, err := os.ReadDir(in)
	if err != nil {
		return Stats{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read input folder %s", in)
	}

	var stats Stats
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if !strings.EqualFold(ext, ".png") {
			continue
		}

		stem := strings.TrimSuffix(entry.Name(), ext)
		inPath := filepath.Join(in, entry.Name())
		outPath := filepath.Join(out, stem+r.Suffix+ext)

		cached, err := r.ProcessFile(ctx, inPath, outPath)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			r.Logger.Warn("skipping file", "file", inPath, "reason", errors.UserMessage(err))
			stats.Skipped++
			continue
		}
		stats.Processed++
		if cached {
			stats.CacheHits++
		}
	}
	return stats, nil
}

// ProcessFile runs the full pipeline for one file and writes the result to
// outPath. The returned bool reports whether the output came from the cache.
func (r *Runner) ProcessFile(ctx context.Context, inPath, outPath string) (bool, error) {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return false, err
	}

	key := cache.StampKey(data, r.sig, r.Suffix)
	if out, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		r.Logger.Debug("cache hit", "file", inPath)
		return true, os.WriteFile(outPath, out, 0644)
	}

	out, err := r.stamp(inPath, data)
	if err != nil {
		return false, err
	}

	if err := os.WriteFile(outPath, out, 0644); err != nil {
		return false, err
	}
	if err := r.Cache.Set(ctx, key, out, cache.TTLStamp); err != nil {
		// Best-effort: a cache write failure never fails the file.
		r.Logger.Debug("cache write failed", "file", inPath, "err", err)
	}
	return false, nil
}

// stamp is the per-file core: split, format, rasterize, composite.
func (r *Runner) stamp(path string, data []byte) ([]byte, error) {
	imageBytes, trailing, err := trailer.Split(data)
	if err != nil {
		return nil, err
	}

	text, misses := r.Formatter.Format(path, trailing)

	// Only the width is needed before compositing; the header is enough.
	cfg, err := png.DecodeConfig(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecodeFailed, err, "decode PNG header of %s", path)
	}

	ban := r.Raster.Render(text, cfg.Width)
	out, err := compose.Stamp(imageBytes, ban, trailing)
	if err != nil {
		return nil, err
	}

	r.Logger.Debug("stamped file",
		"file", path,
		"trailer_bytes", len(trailing),
		"lines", len(r.Formatter.Table)-misses,
		"misses", misses)
	return out, nil
}

// ensureDir creates the output folder if absent and fails if the path
// exists as something else.
func ensureDir(path string) error {
	err := os.Mkdir(path, 0755)
	if err == nil {
		return nil
	}
	if !os.IsExist(err) {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create output folder %s", path)
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, statErr, "stat output folder %s", path)
	}
	if !info.IsDir() {
		return errors.New(errors.ErrCodeInvalidPath, "not a folder: %s", path)
	}
	return nil
}

// SameFile reports whether two paths resolve to the same filesystem entity.
// Paths that cannot be stat'ed (e.g. the output does not exist yet) are
// never the same file.
func SameFile(a, b string) bool {
	ia, err := os.Stat(a)
	if err != nil {
		return false
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ia, ib)
}

// Close releases resources held by the runner (the cache handle).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
