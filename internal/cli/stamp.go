package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/trailware/pngstamp/pkg/banner"
	"github.com/trailware/pngstamp/pkg/config"
	"github.com/trailware/pngstamp/pkg/errors"
	"github.com/trailware/pngstamp/pkg/format"
	"github.com/trailware/pngstamp/pkg/pattern"
	"github.com/trailware/pngstamp/pkg/pipeline"
)

// stampOptions collects the flags shared by stamp and inspect.
type stampOptions struct {
	configPath string
	patterns   string
	fontFile   string
	fontSize   int
	suffix     string
	noCache    bool
}

// stampCommand creates the stamp command, the tool's main operation.
func (c *CLI) stampCommand() *cobra.Command {
	var opts stampOptions

	cmd := &cobra.Command{
		Use:   "stamp <input> <output>",
		Short: "Draw trailer metadata beneath one PNG or a folder of PNGs",
		Long: `Draw trailer metadata beneath one PNG or a folder of PNGs.

If <input> is a PNG file, <output> is the name of the new PNG file that will
be created.

If <input> is a folder, all PNG files in that folder (but not subfolders) are
processed. <output> names the folder where the new files are saved; it is
created if it doesn't already exist. Derived files get the batch suffix
inserted before their extension.

Files whose trailer can't be located are skipped with a warning; the rest of
a batch keeps going.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStamp(cmd.Context(), args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default: ~/.config/pngstamp/config.toml)")
	cmd.Flags().StringVarP(&opts.patterns, "patterns", "p", "", "pattern rule file (default: from config)")
	cmd.Flags().StringVar(&opts.fontFile, "font", "", "TrueType font file (default: from config, else system search)")
	cmd.Flags().IntVar(&opts.fontSize, "font-size", 0, "font point size (default: from config)")
	cmd.Flags().StringVarP(&opts.suffix, "suffix", "s", "", "batch filename suffix (default: from config)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable output caching")

	return cmd
}

// runStamp builds the pipeline from configuration and executes it.
func (c *CLI) runStamp(ctx context.Context, in, out string, opts stampOptions) error {
	if pipeline.SameFile(in, out) {
		return errors.New(errors.ErrCodeInvalidPath, "input and output paths are the same")
	}

	cfg, table, err := c.loadRules(opts)
	if err != nil {
		return err
	}

	face, fontPath, err := banner.LoadFace(cfg.FontFile, float64(cfg.FontSize))
	if err != nil {
		return err
	}

	cch, err := newCache(opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}

	runner := pipeline.NewRunner(
		format.New(table, c.Logger),
		banner.NewRasterizer(face, float64(cfg.FontSize)),
		cch,
		c.Logger,
		cfg.BatchSuffix,
		fontPath,
	)
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Stamping %s...", in))
	spinner.Start()

	stats, err := runner.Run(ctx, in, out)
	if err != nil {
		spinner.StopWithError("Stamping failed")
		return err
	}
	spinner.Stop()

	printSuccess("Stamped %s (%s)", in, stats.Elapsed.Round(time.Millisecond))
	printFile(out)
	printStats(stats.Processed, stats.Skipped, stats.CacheHits)
	return nil
}

// loadRules resolves configuration and the pattern table, applying flag
// overrides on top of the config file.
func (c *CLI) loadRules(opts stampOptions) (config.Config, pattern.Table, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}

	if opts.suffix != "" {
		cfg.BatchSuffix = opts.suffix
	}
	if opts.fontFile != "" {
		cfg.FontFile = opts.fontFile
	}
	if opts.fontSize != 0 {
		if opts.fontSize < 0 {
			return config.Config{}, nil, errors.New(errors.ErrCodeInvalidConfig, "font size must be positive, got %d", opts.fontSize)
		}
		cfg.FontSize = opts.fontSize
	}

	patternsPath := cfg.PatternsFile
	if opts.patterns != "" {
		patternsPath = opts.patterns
	}
	if patternsPath == "" {
		patternsPath = config.DefaultPatternsPath()
	}

	table, err := pattern.Load(patternsPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	c.Logger.Debug("loaded rules", "patterns", len(table), "file", patternsPath)
	return cfg, table, nil
}
