package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userPromoteCmdFlags struct {
	Revoke bool
}

var userPromoteCmd = &cobra.Command{
	Use:   "promote <email|username>",
	Short: "Grant or revoke the admin role",
	Long:  `Grant the admin role to a user. Admins may delete any recipe.`,
	Example: `foodgram user promote alice@example.com
foodgram user promote alice --revoke`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		db, engine := openEngine(cmd.Context(), cfg)
		defer db.Close() //nolint:errcheck

		user, err := engine.SetAdmin(cmd.Context(), args[0], !userPromoteCmdFlags.Revoke)
		if err != nil {
			return err
		}
		if user.IsAdmin {
			fmt.Printf("%s is now an admin\n", user.Username)
		} else {
			fmt.Printf("%s is no longer an admin\n", user.Username)
		}
		return nil
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <email|username>",
	Short: "Delete a user with their recipes and images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		db, engine := openEngine(cmd.Context(), cfg)
		defer db.Close() //nolint:errcheck

		user, err := engine.DeleteUser(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Deleted user %s\n", user.Username)
		return nil
	},
}

func init() {
	userPromoteCmd.Flags().BoolVar(&userPromoteCmdFlags.Revoke, "revoke", false, "Revoke the admin role instead of granting it")

	userCmd.AddCommand(userPromoteCmd, userDeleteCmd)
	rootCmd.AddCommand(userCmd)
}
