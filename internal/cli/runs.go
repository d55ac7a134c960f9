package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/matchcut/internal/momentsfile"
	"github.com/forPelevin/matchcut/internal/store"
	"github.com/forPelevin/matchcut/internal/types"
)

func newRunsCommand(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.Paths.StorePath)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintf(out, "No runs recorded in %s\n", st.Path())
				return nil
			}
			fmt.Fprintln(out, renderTable(out, runHeaders, runRows(runs), runAligns))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 for all)")
	return cmd
}

func newShowCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id | run-dir | segments.json>",
		Short: "Print the fused segments of a run",
		Long: "Print the fused segments of a recorded run. A run output directory or a\n" +
			"segments.json file is read directly, which covers runs missing from the store.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if path, ok := segmentsFile(args[0]); ok {
				segs, err := momentsfile.ReadSegments(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Segments from %s\n", path)
				printSegments(out, segs)
				return nil
			}

			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.Paths.StorePath)
			if err != nil {
				return err
			}
			defer st.Close()

			run, err := st.FindRun(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", st.Path(), err)
			}
			segs, err := st.Segments(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Run %s (%s, %.3f fps)\n", run.ID, run.CreatedAt.Local().Format(time.DateTime), run.FPS)
			if run.OutDir != "" {
				fmt.Fprintf(out, "Output: %s\n", run.OutDir)
			}
			if run.SummaryPath != "" {
				fmt.Fprintf(out, "Summary: %s\n", run.SummaryPath)
			}
			printSegments(out, segs)
			return nil
		},
	}
}

// segmentsFile resolves arg to a segments.json file when it names one or a
// run output directory holding one.
func segmentsFile(arg string) (string, bool) {
	info, err := os.Stat(arg)
	if err != nil {
		return "", false
	}
	if !info.IsDir() {
		return arg, true
	}
	p := filepath.Join(arg, "segments.json")
	if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
		return p, true
	}
	return "", false
}

func printSegments(out io.Writer, segs []types.FusedSegment) {
	if len(segs) == 0 {
		fmt.Fprintln(out, "No segments")
		return
	}
	fmt.Fprintln(out, renderTable(out, segmentHeaders, segmentRows(segs), segmentAligns))
}

var (
	runHeaders     = []string{"ID", "Created", "Source", "FPS", "Frames", "Segments"}
	runAligns      = []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight}
	segmentHeaders = []string{"#", "Start", "End", "Type", "Events", "Text"}
	segmentAligns  = []columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft, alignLeft}
)

func runRows(runs []store.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		source := r.VideoPath
		if source == "" && len(r.Tracks) > 0 {
			source = r.Tracks[0]
		}
		rows = append(rows, []string{
			shortID(r.ID),
			r.CreatedAt.Local().Format(time.DateTime),
			source,
			strconv.FormatFloat(r.FPS, 'f', -1, 64),
			strconv.Itoa(r.Frames),
			strconv.Itoa(r.Segments),
		})
	}
	return rows
}

func segmentRows(segs []types.FusedSegment) [][]string {
	rows := make([][]string, 0, len(segs))
	for i, s := range segs {
		events := make([]string, 0, len(s.Events))
		for _, e := range s.Events {
			events = append(events, string(e))
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			clock(s.Start),
			clock(s.End),
			string(s.Type),
			strings.Join(events, ", "),
			s.Text,
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// clock renders seconds as h:mm:ss.cc, dropping the hour when zero.
func clock(sec float64) string {
	d := time.Duration(sec * float64(time.Second)).Round(10 * time.Millisecond)
	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := d.Seconds() - float64(int(d/time.Minute))*60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%05.2f", h, m, s)
	}
	return fmt.Sprintf("%d:%05.2f", m, s)
}
