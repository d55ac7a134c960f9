package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forPelevin/matchcut/internal/domain/fusion"
	"github.com/forPelevin/matchcut/internal/momentsfile"
	"github.com/forPelevin/matchcut/internal/pipeline"
)

func newFuseCommand(opts *rootOptions) *cobra.Command {
	var (
		intervals string
		audio     string
		output    string
		fps       float64
	)
	cmd := &cobra.Command{
		Use:   "fuse",
		Short: "Fuse existing video moments with audio moments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("fps") {
				fps = cfg.Video.FPS
			}

			ivs, err := momentsfile.ReadIntervals(intervals)
			if err != nil {
				return err
			}
			moments, err := momentsfile.ReadAudio(audio)
			if err != nil {
				return err
			}
			segs, err := fusion.Fuse(ivs, moments, pipeline.FusionParams(cfg, fps))
			if err != nil {
				return err
			}
			logger.Info("segments fused", "intervals", len(ivs), "audio_moments", len(moments), "segments", len(segs))

			if output != "" {
				return momentsfile.WriteJSON(output, segs)
			}
			b, err := json.MarshalIndent(segs, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}

	cmd.Flags().StringVar(&intervals, "intervals", "", "Video moments JSON (aggregated intervals)")
	cmd.Flags().StringVar(&audio, "audio", "", "Audio moments JSON (missing file means no audio)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write segments to this file instead of stdout")
	cmd.Flags().Float64Var(&fps, "fps", 0, "Frame rate of the intervals (defaults to video.fps)")
	_ = cmd.MarkFlagRequired("intervals")
	return cmd
}
