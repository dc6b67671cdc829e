package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/as/hlsfilter/filter"
	"github.com/as/hlsfilter/hls"
	"github.com/as/hlsfilter/internal/config"
)

// ioFlags names the input and output of a transform command
type ioFlags struct {
	in, out string
}

func (f *ioFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.in, "input", "i", "-", "input playlist (- for stdin)")
	fs.StringVarP(&f.out, "output", "o", "", "output file, replaced atomically (stdout when empty)")
}

func (f *ioFlags) read(cmd *cobra.Command) ([]byte, error) {
	if f.in == "" || f.in == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(f.in)
}

// write encodes p to the output file or to stdout
func (f *ioFlags) write(cmd *cobra.Command, p hls.Playlist) error {
	if f.out == "" {
		var buf bytes.Buffer
		if err := p.Encode(&buf); err != nil {
			return err
		}
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	pf, err := renameio.NewPendingFile(f.out)
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer pf.Cleanup()
	if err := p.Encode(pf); err != nil {
		return fmt.Errorf("write playlist: %w", err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", f.out, err)
	}
	return nil
}

// set returns a pointer to v if the flag was given on the command line
func set[T any](cmd *cobra.Command, name string, v T) *T {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func newMasterCmd(load func() (config.Config, error)) *cobra.Command {
	var (
		files                     ioFlags
		minBW, maxBW, index, near int
		rate                      float64
	)
	cmd := &cobra.Command{
		Use:   "master",
		Short: "Filter and reorder the variant streams of a master playlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			opts := filter.MasterOptions{
				MinBandwidth:     set(cmd, "min-bitrate", minBW),
				MaxBandwidth:     set(cmd, "max-bitrate", maxBW),
				FrameRate:        set(cmd, "rate", rate),
				FirstIndex:       set(cmd, "variant-index", index),
				ClosestBandwidth: set(cmd, "closest-bandwidth", near),
			}.Or(cfg.Filters.Master)

			body, err := files.read(cmd)
			if err != nil {
				return err
			}
			var m hls.Master
			if err := m.Decode(bytes.NewReader(body)); err != nil {
				return err
			}
			out := opts.Apply(m)
			return files.write(cmd, &out)
		},
	}
	files.register(cmd)
	fs := cmd.Flags()
	fs.IntVar(&minBW, "min-bitrate", 0, "drop variants below this bandwidth")
	fs.IntVar(&maxBW, "max-bitrate", 0, "drop variants above this bandwidth")
	fs.Float64Var(&rate, "rate", 0, "keep only variants with this frame rate")
	fs.IntVar(&index, "variant-index", 0, "move the variant at this index to the front")
	fs.IntVar(&near, "closest-bandwidth", 0, "move the variant closest to this bandwidth to the front")
	return cmd
}

func newMediaCmd(load func() (config.Config, error)) *cobra.Command {
	var (
		files      ioFlags
		dvr        time.Duration
		start, end int
	)
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Cut a media playlist to a trailing window or a segment range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			opts := filter.MediaOptions{
				Window:    set(cmd, "dvr", dvr),
				TrimStart: set(cmd, "trim-start", start),
				TrimEnd:   set(cmd, "trim-end", end),
			}.Or(cfg.Filters.Media)
			if opts.Window != nil && *opts.Window < 0 {
				return fmt.Errorf("negative dvr window %s", *opts.Window)
			}

			body, err := files.read(cmd)
			if err != nil {
				return err
			}
			var m hls.Media
			if err := m.Decode(bytes.NewReader(body)); err != nil {
				return err
			}
			out, err := opts.Apply(m)
			if err != nil {
				return err
			}
			return files.write(cmd, &out)
		},
	}
	files.register(cmd)
	fs := cmd.Flags()
	fs.DurationVar(&dvr, "dvr", 0, "keep the trailing segments that fit in this duration")
	fs.IntVar(&start, "trim-start", 0, "first segment to keep")
	fs.IntVar(&end, "trim-end", 0, "segment after the last one to keep")
	return cmd
}
