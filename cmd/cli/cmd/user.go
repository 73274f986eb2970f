package cmd

import (
	"productory/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user and print its API key",
	Long: `Create a new user. The API key is printed once and cannot be recovered.

Example:
  STT_ADMIN_TOKEN=... sttctl user create --email alice@example.com`,
	Run: func(cmd *cobra.Command, args []string) {
		email, _ := cmd.Flags().GetString("email")
		if email == "" {
			cmd.Println("Error: --email is required")
			return
		}

		client := NewJobClient(viper.GetString("url"), viper.GetString("admin_token"))
		user, err := client.CreateUser(api.CreateUserRequest{Email: email})
		if err != nil {
			printAPIError(cmd, "Create user", err)
			return
		}

		cmd.Printf("✓ User created!\nUser ID: %s\nAPI Key: %s\n", user.ID, user.ApiKey)
		cmd.Println("Store the key now; it will not be shown again.")
	},
}

func init() {
	userCreateCmd.Flags().StringP("email", "e", "", "Email address (required)")
	userCreateCmd.Flags().String("admin-token", "", "Admin token (or STT_ADMIN_TOKEN)")
	viper.BindPFlag("admin_token", userCreateCmd.Flags().Lookup("admin-token"))

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}
