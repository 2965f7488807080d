package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trailware/pngstamp/pkg/format"
	"github.com/trailware/pngstamp/pkg/trailer"
)

// inspectCommand creates the inspect command, a debug view over the trailer
// and the formatted lines without producing an image.
func (c *CLI) inspectCommand() *cobra.Command {
	var opts stampOptions
	var raw bool

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show a PNG's trailer and the lines the rules produce",
		Long: `Show a PNG's trailer and the lines the rules produce.

Useful for tuning the pattern file: inspect reads the file, splits off the
trailing bytes and prints the text each rule would contribute, warning about
rules that don't match. With --raw the decoded trailer is printed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(args[0], raw, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default: ~/.config/pngstamp/config.toml)")
	cmd.Flags().StringVarP(&opts.patterns, "patterns", "p", "", "pattern rule file (default: from config)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the decoded trailer instead of the formatted lines")

	return cmd
}

func (c *CLI) runInspect(path string, raw bool, opts stampOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	imageBytes, trailing, err := trailer.Split(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	printInfo("%s", path)
	printDetail("image: %d bytes, trailer: %d bytes", len(imageBytes), len(trailing))

	if raw {
		fmt.Println(format.Decode(trailing))
		return nil
	}

	_, table, err := c.loadRules(opts)
	if err != nil {
		return err
	}

	text, misses := format.New(table, c.Logger).Format(path, trailing)
	if text != "" {
		fmt.Println(text)
	}
	if misses > 0 {
		printWarning("%d of %d rules did not match", misses, len(table))
	}
	return nil
}
