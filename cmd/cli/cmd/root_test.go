package cmd

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// resetViper clears viper state and restores the env binding initConfig sets up.
func resetViper() {
	viper.Reset()
	viper.SetEnvPrefix("STT")
	viper.AutomaticEnv()
}

// resetFlags restores every flag below c to its default, since cobra keeps
// parsed values between Execute calls.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCLI executes the root command against url with token and returns everything printed.
func runCLI(t *testing.T, url, token string, args ...string) (string, error) {
	t.Helper()
	resetViper()
	resetFlags(rootCmd)
	viper.Set("url", url)
	viper.Set("token", token)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootCommand_DefaultURL(t *testing.T) {
	resetViper()

	cmd := &cobra.Command{}
	cmd.PersistentFlags().String("url", "http://localhost:6161", "Controller URL")
	viper.BindPFlag("url", cmd.PersistentFlags().Lookup("url"))

	url := viper.GetString("url")
	if url != "http://localhost:6161" {
		t.Errorf("expected default url http://localhost:6161, got: %s", url)
	}
}

func TestRootCommand_EnvVarBinding(t *testing.T) {
	resetViper()

	t.Setenv("STT_TOKEN", "env-token-value")
	t.Setenv("STT_URL", "http://custom-url:8080")

	token := viper.GetString("token")
	url := viper.GetString("url")

	if token != "env-token-value" {
		t.Errorf("expected token from env var, got: %s", token)
	}
	if url != "http://custom-url:8080" {
		t.Errorf("expected url from env var, got: %s", url)
	}
}

func TestRootCommand_ExecuteReturnsNoError(t *testing.T) {
	resetViper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--help"})

	if err := rootCmd.Execute(); err != nil {
		t.Errorf("root command should execute without error: %v", err)
	}
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	want := []string{"status [job_id]", "logs [job_id]", "submit", "jobs", "files", "user", "path"}

	registered := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Use] = true
	}
	for _, use := range want {
		if !registered[use] {
			t.Errorf("expected %q subcommand to be registered with root command", use)
		}
	}
}

func TestExecute_ReturnsError(t *testing.T) {
	resetViper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"unknown-command-xyz"})

	if err := Execute(); err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestRootCommand_CustomConfigFile(t *testing.T) {
	resetViper()

	tmpFile, err := os.CreateTemp("", "sttctl-test-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	tmpFile.WriteString("url: http://custom-from-config:9999\ntoken: config-token\n")
	tmpFile.Close()

	cfgFile = tmpFile.Name()
	defer func() { cfgFile = "" }()
	initConfig()

	if url := viper.GetString("url"); url != "http://custom-from-config:9999" {
		t.Errorf("expected url from config file, got: %s", url)
	}
	if token := viper.GetString("token"); token != "config-token" {
		t.Errorf("expected token from config file, got: %s", token)
	}
}

func TestMissingToken(t *testing.T) {
	commands := [][]string{
		{"status", "job-1"},
		{"logs", "job-1"},
		{"jobs"},
		{"submit", "--file-id", "a.mp3"},
		{"files", "list"},
		{"files", "rm", "a.mp3"},
	}

	for _, args := range commands {
		t.Run(args[0], func(t *testing.T) {
			out, err := runCLI(t, "http://localhost:6161", "", args...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(out, "API token not found") {
				t.Errorf("expected token error message, got: %s", out)
			}
		})
	}
}
