package jobs

import "github.com/spf13/cobra"

func NewJobsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Run background jobs once",
	}

	cmd.AddCommand(NewOverdueCommand())

	return cmd
}
