package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/atikulmunna/sharetail/internal/report"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Check connectivity and every candidate mount path",
	Long: `Ping the file server, test the SMB port, probe every place the share
might be mounted and show which path and log file the viewer would use.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(os.Stderr, false)
		if err != nil {
			return err
		}
		defer a.log.Close()

		r := report.Collect(cmd.Context(), a.detector, report.Options{
			ProbeTimeout:  a.cfg.Timeouts.Probe,
			LocateTimeout: a.cfg.Timeouts.Discovery,
			Naming:        a.naming,
		})
		return report.Print(cmd.OutOrStdout(), r)
	},
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
}
