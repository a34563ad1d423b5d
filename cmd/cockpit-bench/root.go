package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cockpit-go/internal/logging"
	"cockpit-go/internal/platform"
	"cockpit-go/services/config"
	"cockpit-go/types"
)

var opts = viper.New()

var rootCmd = &cobra.Command{
	Use:           "cockpit-bench",
	Short:         "Cockpit controller bench",
	Long:          "cockpit-bench drives the gauge and sim-state logic on the host with fake steppers and a scripted or recorded simulator feed.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Config file layered over the embedded device config")
	pf.String("device", platform.DeviceID, "Embedded device config to start from")
	pf.String("log-level", "", "Log level (debug, info, warn, error); overrides the config")
	pf.Bool("no-color", false, "Disable colored output")
	_ = opts.BindPFlags(pf)
	opts.SetEnvPrefix("COCKPIT_BENCH")
	opts.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	opts.AutomaticEnv()

	rootCmd.AddCommand(runCmd, recordCmd, replayCmd, checkCmd)
}

// loadConfig resolves the cockpit config and a console logger for it.
func loadConfig() (types.CockpitConfig, zerolog.Logger, error) {
	cfg, err := config.Load(opts.GetString("config"), opts.GetString("device"))
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	level := cfg.Log.Level
	if l := opts.GetString("log-level"); l != "" {
		level = l
	}
	log := logging.Console(os.Stderr, level, !opts.GetBool("no-color"))
	return cfg, log, nil
}
