package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cockpit-go/internal/capture"
	"cockpit-go/services/simfeed"
)

var (
	replayDB       string
	replaySession  string
	replayList     bool
	replayRealtime bool
	replayTail     time.Duration
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded session through the cockpit",
	Long:  "replay plays a stored telemetry session back through a fresh cockpit, or lists the stored sessions with --list.",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := capture.Open(replayDB)
		if err != nil {
			return err
		}
		defer st.Close()
		color := !opts.GetBool("no-color")

		if replayList {
			list, err := st.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSessions(list, color))
			return nil
		}
		if replaySession == "" {
			return fmt.Errorf("--session required (use --list to see sessions)")
		}

		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		recs, err := st.Records(cmd.Context(), replaySession)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return fmt.Errorf("session %s has no records", replaySession)
		}
		sc := simfeed.FromRecords(replaySession, recs)
		res, err := runHarness(cmd.Context(), cfg, sc, log, harnessOptions{
			Realtime: replayRealtime,
			Tail:     replayTail,
			Out:      cmd.OutOrStdout(),
			Color:    color,
		})
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), renderStatus(res.Status, color))
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayDB, "db", "cockpit-capture.db", "SQLite capture database")
	replayCmd.Flags().StringVar(&replaySession, "session", "", "Session ID to replay")
	replayCmd.Flags().BoolVar(&replayList, "list", false, "List stored sessions")
	replayCmd.Flags().BoolVar(&replayRealtime, "realtime", false, "Replay on the wall clock")
	replayCmd.Flags().DurationVar(&replayTail, "tail", time.Second, "Keep cycling this long after the last record")
}
