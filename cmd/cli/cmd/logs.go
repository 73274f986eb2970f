package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var follow bool

var logsCmd = &cobra.Command{
	Use:   "logs [job_id]",
	Short: "Show the log of a job",
	Long: `Print a job's log entries in order. With --follow new entries are printed
as they arrive until the job completes or fails.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		jobID := args[0]

		client, ok := newClient(cmd)
		if !ok {
			return
		}

		// Trap Ctrl+C to exit gracefully
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		go func() {
			if _, ok := <-sigChan; ok {
				os.Exit(0)
			}
		}()

		printed := 0
		for {
			entries, err := client.GetLogs(jobID)
			if err != nil {
				printAPIError(cmd, "Fetching logs", err)
				if !follow {
					return
				}
				time.Sleep(2 * time.Second) // Retry backoff
				continue
			}

			// The endpoint returns the whole log; skip what is already on screen.
			for _, entry := range entries[min(printed, len(entries)):] {
				cmd.Printf("%s [%s] %s\n", entry.CreatedAt.Format(time.RFC3339), levelTag(entry.Level), entry.Message)
			}
			printed = max(printed, len(entries))

			if !follow {
				return
			}

			job, err := client.GetJob(jobID)
			if err == nil && isTerminal(job.Status) {
				return
			}
			time.Sleep(pollInterval)
		}
	},
}

func levelTag(level string) string {
	switch level {
	case "error":
		return colorRed + "ERROR" + colorReset
	case "warning":
		return colorYellow + "WARN" + colorReset
	default:
		return "INFO"
	}
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output until the job finishes")
}
