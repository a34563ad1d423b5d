package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cockpit-go/internal/capture"
	"cockpit-go/x/strx"
)

var (
	recordDB        string
	recordName      string
	recordScenario  string
	recordRealtime  bool
	recordCalibrate bool
	recordTail      time.Duration
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Play a scenario and store its telemetry",
	Long:  "record is run plus capture: every telemetry update is stored in a SQLite session that replay can play back.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		sc, err := loadScenario(recordScenario)
		if err != nil {
			return err
		}
		st, err := capture.Open(recordDB)
		if err != nil {
			return err
		}
		defer st.Close()

		id, err := st.NewSession(cmd.Context(), strx.Coalesce(recordName, sc.Name), time.Now())
		if err != nil {
			return err
		}
		color := !opts.GetBool("no-color")
		res, err := runHarness(cmd.Context(), cfg, sc, log, harnessOptions{
			Realtime:  recordRealtime,
			Calibrate: recordCalibrate,
			Tail:      recordTail,
			Out:       cmd.OutOrStdout(),
			Color:     color,
			Store:     st,
			Session:   id,
		})
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), renderStatus(res.Status, color))
		fmt.Fprintf(cmd.OutOrStdout(), "session %s: %d records\n", id, res.Recorded)
		return nil
	},
}

func init() {
	recordCmd.Flags().StringVar(&recordDB, "db", "cockpit-capture.db", "SQLite capture database")
	recordCmd.Flags().StringVar(&recordName, "name", "", "Session name (default: scenario name)")
	addRunFlags(recordCmd, &recordScenario, &recordRealtime, &recordCalibrate, &recordTail)
}
