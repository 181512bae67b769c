package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridpilot/gridpilot/config"
	"github.com/gridpilot/gridpilot/infra/logger"
	"github.com/gridpilot/gridpilot/infra/mqtt"
)

var (
	overrideMode     string
	overrideRateW    float64
	overrideDuration int
)

var overrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Manual override commands",
}

var overrideSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Force an operating mode on the running service",
	RunE:  runOverrideSet,
}

var overrideClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the active override",
	RunE:  runOverrideClear,
}

func init() {
	overrideSetCmd.Flags().StringVar(&overrideMode, "mode", "charge_from_grid", "override mode: charge_from_grid, avoid_discharge or discharge_allowed")
	overrideSetCmd.Flags().Float64Var(&overrideRateW, "rate", 0, "grid charge rate in W (charge_from_grid only)")
	overrideSetCmd.Flags().IntVar(&overrideDuration, "duration", 60, "override duration in minutes")
	overrideCmd.AddCommand(overrideSetCmd)
	overrideCmd.AddCommand(overrideClearCmd)
	rootCmd.AddCommand(overrideCmd)
}

func overrideClient() (*mqtt.Client, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	mqttCfg := cfg.MQTT
	mqttCfg.ClientID = fmt.Sprintf("gridpilot-cli-%d", time.Now().UnixNano())
	return mqtt.NewClient(mqttCfg, logger.New("override-command"))
}

func runOverrideSet(cmd *cobra.Command, args []string) error {
	client, err := overrideClient()
	if err != nil {
		return err
	}
	defer client.Close()
	if err := client.SendOverride(overrideMode, overrideRateW, overrideDuration); err != nil {
		return fmt.Errorf("send override: %w", err)
	}
	fmt.Printf("override %s requested for %d minutes\n", overrideMode, overrideDuration)
	return nil
}

func runOverrideClear(cmd *cobra.Command, args []string) error {
	client, err := overrideClient()
	if err != nil {
		return err
	}
	defer client.Close()
	if err := client.SendClearOverride(); err != nil {
		return fmt.Errorf("send clear: %w", err)
	}
	fmt.Println("override clear requested")
	return nil
}
