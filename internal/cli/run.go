package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/matchcut/internal/pipeline"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	var (
		tracks  []string
		audio   string
		video   string
		outDir  string
		fps     float64
		summary bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Detect, fuse and optionally assemble highlights for one match",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("out") {
				cfg.Paths.OutDir = outDir
			}
			if cmd.Flags().Changed("fps") {
				cfg.Video.FPS = fps
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			abs := make([]string, 0, len(tracks))
			for _, t := range tracks {
				p, err := filepath.Abs(t)
				if err != nil {
					return err
				}
				abs = append(abs, p)
			}
			if video != "" {
				if video, err = filepath.Abs(video); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, 3*time.Hour)
			defer cancel()

			pc := pipeline.Config{
				App:       cfg,
				Tracks:    abs,
				AudioJSON: audio,
				VideoPath: video,
				Summary:   summary,
				Logger:    logger,
			}
			if err := pc.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			out, err := pipeline.Run(ctx, pc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d segments in %s\n", out.RunID, len(out.Segments), out.OutDir)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&tracks, "tracks", nil, "Tracking stream (JSON Lines); repeat for shards")
	cmd.Flags().StringVar(&audio, "audio", "", "Audio moments JSON; skips transcription")
	cmd.Flags().StringVar(&video, "video", "", "Match video, probed for fps and used for audio and the summary")
	cmd.Flags().StringVar(&outDir, "out", "out", "Output directory")
	cmd.Flags().Float64Var(&fps, "fps", 0, "Frame rate of the tracking stream (0 probes --video)")
	cmd.Flags().BoolVar(&summary, "summary", false, "Cut and concatenate a summary video")
	_ = cmd.MarkFlagRequired("tracks")
	return cmd
}
