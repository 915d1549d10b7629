/*
Copyright © 2024 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apex/log"
	clihander "github.com/apex/log/handlers/cli"
	"github.com/blacktop/go-imgdec"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	showFrames bool
	purgeCheck bool
	preview    bool
	useSixel   bool
	colors     int
	maxWidth   int
	maxHeight  int
)

func init() {
	log.SetHandler(clihander.Default)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "Enable verbose logging")
	rootCmd.PersistentFlags().IntVar(&maxWidth, "max-width", imgdec.DefaultMaxWidth, "Reject images wider than this")
	rootCmd.PersistentFlags().IntVar(&maxHeight, "max-height", imgdec.DefaultMaxHeight, "Reject images taller than this")
	rootCmd.Flags().BoolVarP(&showFrames, "frames", "f", false, "List every frame and its duration")
	rootCmd.Flags().BoolVarP(&purgeCheck, "purge", "p", false, "Purge the decoded bitmap and decode it again")
	rootCmd.Flags().BoolVarP(&preview, "preview", "P", false, "Render the image in the terminal")
	rootCmd.Flags().BoolVar(&useSixel, "sixel", false, "Use sixel graphics for --preview")
	rootCmd.Flags().IntVar(&colors, "colors", 256, "Sixel palette size (2-256)")
	rootCmd.AddCommand(playCmd)
}

// pool backs every decoder created by the CLI so --purge can reclaim it
var pool = imgdec.NewPool()

func decoderOptions() []imgdec.Option {
	return []imgdec.Option{
		imgdec.WithMaxSize(maxWidth, maxHeight),
		imgdec.WithPool(pool),
		imgdec.WithLogger(log.Log),
	}
}

func loopString(n int) string {
	if n == 0 {
		return "forever"
	}
	return fmt.Sprint(n)
}

// summarize returns the one-line report printed for every valid file
func summarize(path string, dec *imgdec.Decoder) string {
	loop := "-"
	if dec.IsAnimated() {
		loop = loopString(dec.LoopCount())
	}
	return fmt.Sprintf("%s: %s %s animated=%t loop=%s frames=%d",
		path, dec.Format(), dec.Size(), dec.IsAnimated(), loop, dec.FrameCount())
}

func frameLines(dec *imgdec.Decoder) []string {
	var lines []string
	for i := range dec.FrameCount() {
		f := dec.Frame(i)
		lines = append(lines, fmt.Sprintf("  frame %d: %s %v", i, f.Bitmap.Size(), f.Duration))
	}
	return lines
}

type purgeReport struct {
	Freed    int64
	Purged   bool
	Restored bool
}

func (r purgeReport) String() string {
	return fmt.Sprintf("  purge: freed=%dB purged=%t restored=%t", r.Freed, r.Purged, r.Restored)
}

// checkPurge marks the decoded frames volatile, purges the pool and makes
// them resident again, decoding a second time if their storage was lost.
func checkPurge(dec *imgdec.Decoder, p *imgdec.Pool) (purgeReport, error) {
	if dec.Bitmap() == nil {
		return purgeReport{}, fmt.Errorf("failed to decode bitmap: %w", dec.Err())
	}
	dec.SetVolatile()
	var r purgeReport
	r.Freed = p.Purge()
	ok, purged := dec.SetNonvolatile()
	if !ok {
		return r, fmt.Errorf("bitmap was never decoded")
	}
	r.Purged = purged
	r.Restored = dec.Bitmap().Image() != nil
	return r, nil
}

// inspect prints the report for one file and returns false if it could not
// be decoded.
func inspect(w io.Writer, path string) bool {
	dec, err := imgdec.Open(path, decoderOptions()...)
	if err != nil {
		log.WithError(err).WithField("path", path).Error("failed to open image")
		return false
	}
	defer dec.Release()

	if !dec.IsValid() {
		log.WithField("path", path).Error("unrecognized or oversized image")
		return false
	}
	log.Debugf("Image Info: %s", dec.Info())

	fmt.Fprintln(w, summarize(path, dec))
	if showFrames {
		for _, line := range frameLines(dec) {
			fmt.Fprintln(w, line)
		}
	}
	if err := dec.Err(); err != nil {
		log.WithError(err).WithField("path", path).Error("failed to decode image")
		return false
	}
	if purgeCheck {
		r, err := checkPurge(dec, pool)
		if err != nil {
			log.WithError(err).WithField("path", path).Error("purge check failed")
			return false
		}
		fmt.Fprintln(w, r)
	}
	if preview {
		bm := dec.Bitmap()
		if bm == nil {
			log.WithError(dec.Err()).WithField("path", path).Error("nothing to preview")
			return false
		}
		out, err := renderPreview(bm.Image(), previewOptions{Sixel: useSixel, Colors: colors})
		if err != nil {
			log.WithError(err).WithField("path", path).Error("failed to render preview")
			return false
		}
		fmt.Fprintln(w, out)
	}
	return true
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "imginfo FILE...",
	Short: "Inspect PNG, GIF, BMP, JPEG, WebP and TIFF images",
	Args:  cobra.MinimumNArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		var failed []string
		for _, path := range args {
			if !inspect(cmd.OutOrStdout(), path) {
				failed = append(failed, path)
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d of %d files could not be decoded: %s", len(failed), len(args), strings.Join(failed, ", "))
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}
