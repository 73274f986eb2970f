package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List your jobs",
	Long: `List your jobs, newest first.

Example:
  sttctl jobs
  sttctl jobs --status failed`,
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")

		client, ok := newClient(cmd)
		if !ok {
			return
		}

		jobs, err := client.ListJobs(status)
		if err != nil {
			printAPIError(cmd, "List", err)
			return
		}

		if len(jobs) == 0 {
			cmd.Println("No jobs found.")
			return
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tPRIORITY\tATTEMPTS\tCREATED")
		for _, job := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d/%d\t%s ago\n",
				job.ID, job.JobType, job.Status, job.Priority, job.Attempts, job.MaxAttempts, relativeTime(job.CreatedAt))
		}
		w.Flush()
	},
}

func init() {
	jobsCmd.Flags().StringP("status", "s", "", "Only show jobs in this status")
	rootCmd.AddCommand(jobsCmd)
}
