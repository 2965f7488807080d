package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"golang.org/x/image/font/basicfont"

	"github.com/trailware/pngstamp/pkg/banner"
	"github.com/trailware/pngstamp/pkg/cache"
	"github.com/trailware/pngstamp/pkg/errors"
	"github.com/trailware/pngstamp/pkg/format"
	"github.com/trailware/pngstamp/pkg/pattern"
	"github.com/trailware/pngstamp/pkg/trailer"
)

func pngWithTrailer(t *testing.T, w, h int, trailing []byte) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error: %v", err)
	}
	buf.Write(trailing)
	return buf.Bytes()
}

func newTestRunner(t *testing.T, c cache.Cache) *Runner {
	t.Helper()
	table, err := pattern.Parse(strings.NewReader("steps:\\s*(\\d+)\nsteps \\1"))
	if err != nil {
		t.Fatalf("pattern.Parse() error: %v", err)
	}
	logger := log.New(io.Discard)
	f := format.New(table, logger)
	r := banner.NewRasterizer(basicfont.Face7x13, 13)
	return NewRunner(f, r, c, logger, "_text", "face7x13")
}

func TestRunSingleFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	trailing := []byte("prompt\nsteps: 20")
	if err := os.WriteFile(in, pngWithTrailer(t, 24, 16, trailing), 0o644); err != nil {
		t.Fatal(err)
	}

	r := newTestRunner(t, nil)
	defer r.Close()

	stats, err := r.Run(context.Background(), in, out)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if stats.Processed != 1 || stats.Skipped != 0 {
		t.Errorf("stats = %+v, want 1 processed", stats)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	imgBytes, gotTrailing, err := trailer.Split(data)
	if err != nil {
		t.Fatalf("split output: %v", err)
	}
	if !bytes.Equal(gotTrailing, trailing) {
		t.Errorf("output trailer = %q, want %q", gotTrailing, trailing)
	}

	img, err := png.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		t.Fatalf("decode output image: %v", err)
	}
	if img.Bounds().Dx() != 24 {
		t.Errorf("output width = %d, want 24", img.Bounds().Dx())
	}
	if img.Bounds().Dy() <= 16 {
		t.Errorf("output height = %d, want original plus banner", img.Bounds().Dy())
	}
}

func TestRunSingleFileWithoutTrailerIsSkipped(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bare.png")
	out := filepath.Join(dir, "out.png")
	if err := os.WriteFile(in, []byte("no marker in here"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := newTestRunner(t, nil)
	defer r.Close()

	stats, err := r.Run(context.Background(), in, out)
	if err != nil {
		t.Fatalf("Run() should not fail on a recoverable per-file error: %v", err)
	}
	if stats.Skipped != 1 || stats.Processed != 0 {
		t.Errorf("stats = %+v, want 1 skipped", stats)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no output file should be written for a skipped file")
	}
}

func TestRunBatchDirectory(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "derived")
	trailing := []byte("steps: 42")

	// a.png and b.PNG are processed (extension match is case-insensitive and
	// the original case is preserved); notes.txt is ignored; broken.png has
	// no trailer and is skipped.
	files := map[string][]byte{
		"a.png":      pngWithTrailer(t, 10, 10, trailing),
		"b.PNG":      pngWithTrailer(t, 12, 8, trailing),
		"notes.txt":  []byte("not an image"),
		"broken.png": []byte("png without a marker"),
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(in, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(in, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(in, "sub", "nested.png"), pngWithTrailer(t, 4, 4, trailing), 0o644); err != nil {
		t.Fatal(err)
	}

	r := newTestRunner(t, nil)
	defer r.Close()

	stats, err := r.Run(context.Background(), in, out)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if stats.Processed != 2 {
		t.Errorf("Processed = %d, want 2", stats.Processed)
	}
	if stats.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1 (broken.png)", stats.Skipped)
	}

	for _, want := range []string{"a_text.png", "b_text.PNG"} {
		if _, err := os.Stat(filepath.Join(out, want)); err != nil {
			t.Errorf("expected output %s: %v", want, err)
		}
	}
	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("output folder entries = %v, want exactly 2", names)
	}
}

func TestRunCreatesOutputDirectory(t *testing.T) {
	in := t.TempDir()
	if err := os.WriteFile(filepath.Join(in, "a.png"), pngWithTrailer(t, 6, 6, []byte("steps: 1")), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "fresh")

	r := newTestRunner(t, nil)
	defer r.Close()

	if _, err := r.Run(context.Background(), in, out); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	info, err := os.Stat(out)
	if err != nil || !info.IsDir() {
		t.Errorf("output folder should exist: %v", err)
	}
}

func TestRunOutputPathOccupiedByFile(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(out, []byte("a file"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := newTestRunner(t, nil)
	defer r.Close()

	_, err := r.Run(context.Background(), in, out)
	if !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("error code = %q, want INVALID_PATH", errors.GetCode(err))
	}
}

func TestRunCacheHitOnSecondPass(t *testing.T) {
	in := t.TempDir()
	if err := os.WriteFile(filepath.Join(in, "a.png"), pngWithTrailer(t, 8, 8, []byte("steps: 3")), 0o644); err != nil {
		t.Fatal(err)
	}

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := newTestRunner(t, fc)
	defer r.Close()

	out1 := filepath.Join(t.TempDir(), "first")
	stats, err := r.Run(context.Background(), in, out1)
	if err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	if stats.CacheHits != 0 {
		t.Errorf("first run CacheHits = %d, want 0", stats.CacheHits)
	}

	out2 := filepath.Join(t.TempDir(), "second")
	stats, err = r.Run(context.Background(), in, out2)
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if stats.CacheHits != 1 {
		t.Errorf("second run CacheHits = %d, want 1", stats.CacheHits)
	}

	a, _ := os.ReadFile(filepath.Join(out1, "a_text.png"))
	b, _ := os.ReadFile(filepath.Join(out2, "a_text.png"))
	if !bytes.Equal(a, b) {
		t.Error("cached output should be byte-identical to the computed one")
	}
}

func TestCacheMissAfterFontChange(t *testing.T) {
	table, err := pattern.Parse(strings.NewReader("steps:\\s*(\\d+)\nsteps \\1"))
	if err != nil {
		t.Fatalf("pattern.Parse() error: %v", err)
	}
	if renderSignature(table, 13, "/fonts/a.ttf") == renderSignature(table, 13, "/fonts/b.ttf") {
		t.Error("signatures with different fonts should differ")
	}

	in := t.TempDir()
	if err := os.WriteFile(filepath.Join(in, "a.png"), pngWithTrailer(t, 8, 8, []byte("steps: 3")), 0o644); err != nil {
		t.Fatal(err)
	}
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer fc.Close()

	logger := log.New(io.Discard)
	f := format.New(table, logger)
	ras := banner.NewRasterizer(basicfont.Face7x13, 13)

	r1 := NewRunner(f, ras, fc, logger, "_text", "/fonts/a.ttf")
	if _, err := r1.Run(context.Background(), in, filepath.Join(t.TempDir(), "first")); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}

	// Same input and table, different font: the prior entry must not be served.
	r2 := NewRunner(f, ras, fc, logger, "_text", "/fonts/b.ttf")
	stats, err := r2.Run(context.Background(), in, filepath.Join(t.TempDir(), "second"))
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if stats.CacheHits != 0 {
		t.Errorf("CacheHits = %d, want 0 after a font change", stats.CacheHits)
	}
}

func TestRunCancelledContext(t *testing.T) {
	in := t.TempDir()
	if err := os.WriteFile(filepath.Join(in, "a.png"), pngWithTrailer(t, 6, 6, []byte("x")), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTestRunner(t, nil)
	defer r.Close()

	if _, err := r.Run(ctx, in, filepath.Join(t.TempDir(), "out")); err == nil {
		t.Error("Run() with cancelled context should fail")
	}
}

func TestSameFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.png")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !SameFile(path, path) {
		t.Error("a path is the same file as itself")
	}
	other := filepath.Join(dir, "g.png")
	if err := os.WriteFile(other, []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}
	if SameFile(path, other) {
		t.Error("distinct files should not be the same")
	}
	if SameFile(path, filepath.Join(dir, "missing.png")) {
		t.Error("a missing path is never the same file")
	}
}
