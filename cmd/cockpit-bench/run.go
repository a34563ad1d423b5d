package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cockpit-go/services/simfeed"
)

var (
	runScenario  string
	runRealtime  bool
	runCalibrate bool
	runTail      time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Play a scenario into the cockpit",
	Long:  "run feeds a scenario (the built-in flight unless --scenario is given) into the cockpit and prints every sim-state transition.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		sc, err := loadScenario(runScenario)
		if err != nil {
			return err
		}
		color := !opts.GetBool("no-color")
		res, err := runHarness(cmd.Context(), cfg, sc, log, harnessOptions{
			Realtime:  runRealtime,
			Calibrate: runCalibrate,
			Tail:      runTail,
			Out:       cmd.OutOrStdout(),
			Color:     color,
		})
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), renderStatus(res.Status, color))
		log.Info().Uint64("cycles", res.Cycles).Dur("elapsed", res.Elapsed).Msg("bench run done")
		return nil
	},
}

func addRunFlags(cmd *cobra.Command, scenario *string, realtime, calibrate *bool, tail *time.Duration) {
	cmd.Flags().StringVar(scenario, "scenario", "", "Scenario YAML file (default: built-in flight)")
	cmd.Flags().BoolVar(realtime, "realtime", false, "Run on the wall clock instead of virtual time")
	cmd.Flags().BoolVar(calibrate, "calibrate", true, "Run the boot calibration sequences first")
	cmd.Flags().DurationVar(tail, "tail", time.Second, "Keep cycling this long after the scenario ends")
}

func init() {
	addRunFlags(runCmd, &runScenario, &runRealtime, &runCalibrate, &runTail)
}

func loadScenario(path string) (simfeed.Scenario, error) {
	if path == "" {
		return simfeed.Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return simfeed.Scenario{}, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()
	return simfeed.LoadYAML(f)
}
