package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

const missingTokenMsg = "API token not found. Please set it using the --token flag or the STT_TOKEN environment variable"

var rootCmd = &cobra.Command{
	Use:   "sttctl",
	Short: "sttctl is a command line tool for the productory speech-to-text service",
	Long: `sttctl is the command-line interface for the productory speech-to-text job service.

Audio files are uploaded to object storage under a per-user prefix, then
transcription and summary jobs are queued and picked up by workers:

  - Controller: HTTP API for users, files and jobs
  - Worker: claims queued jobs, calls the speech-to-text provider and stores transcripts

Common workflows:

  Upload a recording:
    sttctl files upload ./meeting.mp3

  Upload and transcribe in one step, waiting for the result:
    sttctl submit --upload ./meeting.mp3 --language en --wait

  Summarise an existing transcription:
    sttctl submit --type ai_summary --file-id meeting.mp3 --transcription-id tr-1

  Check job status:
    sttctl status <job-id> --wait

  Show a job's log:
    sttctl logs <job-id> --follow

Configuration:
  Set the API endpoint and credentials via environment variables or a config file:
    STT_URL          API endpoint (default: http://localhost:6161)
    STT_TOKEN        User API key for authentication
    STT_ADMIN_TOKEN  Admin token for 'user create'`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".sttctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".sttctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "STT_VARNAME"
	viper.SetEnvPrefix("STT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newClient returns a client for the configured controller, or reports a missing token.
func newClient(cmd *cobra.Command) (*JobClient, bool) {
	token := viper.GetString("token")
	if token == "" {
		cmd.Println(missingTokenMsg)
		return nil, false
	}
	return NewJobClient(viper.GetString("url"), token), true
}

// printAPIError prints err with the action that failed.
func printAPIError(cmd *cobra.Command, action string, err error) {
	if apiErr, ok := err.(*APIError); ok {
		cmd.Printf("%s failed (%d): %s\n", action, apiErr.StatusCode, apiErr.Message)
		return
	}
	cmd.Printf("%s failed: %v\n", action, err)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sttctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:6161", "Controller URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "API key for authentication")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}
