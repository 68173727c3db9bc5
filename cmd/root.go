package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	httpcmd "github.com/clinicadesk/clinica_backend/cmd/http"
	jobscmd "github.com/clinicadesk/clinica_backend/cmd/jobs"
	systemcmd "github.com/clinicadesk/clinica_backend/cmd/system"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "clinica",
	Short: "Clinica appointment and visit management backend.",
	Long: `Clinica books recurring appointments between patients and professionals,
tracks the visits that confirm them and reports on attendance.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	rootCmd.AddCommand(systemcmd.NewSystemCommand())
	rootCmd.AddCommand(httpcmd.NewHTTPCommand())
	rootCmd.AddCommand(jobscmd.NewJobsCommand())
}
