package cmd

import (
	"fmt"
	"strings"

	cfgpkg "github.com/KaramelBytes/dairyreport/internal/config"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set dairyreport configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "target_year: %d\n", c.TargetYear)
		fmt.Fprintf(out, "anomaly_band_width_in_stddevs: %g\n", c.AnomalyBandWidth)
		fmt.Fprintf(out, "data_sheet_name: %s\n", c.DataSheetName)
		fmt.Fprintf(out, "required_columns: %s\n", strings.Join(c.RequiredColumns, ", "))
		fmt.Fprintf(out, "split_abnormal_direction: %t\n", c.SplitAbnormalDirection)
		fmt.Fprintf(out, "preview_rows: %d\n", c.PreviewRows)
		fmt.Fprintf(out, "capacity_reference_percent: %g\n", c.CapacityReferencePercent)
		fmt.Fprintf(out, "locale: %s\n", c.Locale)
		fmt.Fprintf(out, "currency_symbol: %s\n", c.CurrencySymbol)
		fmt.Fprintf(out, "listen_addr: %s\n", c.ListenAddr)
		fmt.Fprintf(out, "max_upload_mb: %d\n", c.MaxUploadMB)
		fmt.Fprintf(out, "session_ttl_minutes: %d\n", c.SessionTTLMinutes)
		fmt.Fprintf(out, "cors_allowed_origins: %s\n", strings.Join(c.CORSAllowedOrigins, ", "))
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", c.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		if err := setConfigValue(c, args[0], args[1]); err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

// setConfigValue assigns val to the field named by key, converting with cast.
func setConfigValue(c *cfgpkg.Global, key, val string) error {
	var err error
	switch key {
	case "target_year":
		c.TargetYear, err = cast.ToIntE(val)
	case "anomaly_band_width_in_stddevs":
		c.AnomalyBandWidth, err = cast.ToFloat64E(val)
	case "data_sheet_name":
		c.DataSheetName = val
	case "required_columns":
		c.RequiredColumns = splitList(val)
	case "split_abnormal_direction":
		c.SplitAbnormalDirection, err = cast.ToBoolE(val)
	case "preview_rows":
		c.PreviewRows, err = cast.ToIntE(val)
	case "capacity_reference_percent":
		c.CapacityReferencePercent, err = cast.ToFloat64E(val)
	case "locale":
		c.Locale = val
	case "currency_symbol":
		c.CurrencySymbol = val
	case "listen_addr":
		c.ListenAddr = val
	case "max_upload_mb":
		c.MaxUploadMB, err = cast.ToIntE(val)
	case "session_ttl_minutes":
		c.SessionTTLMinutes, err = cast.ToIntE(val)
	case "cors_allowed_origins":
		c.CORSAllowedOrigins = splitList(val)
	case "log_level":
		c.LogLevel = val
	case "log_format":
		c.LogFormat = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
