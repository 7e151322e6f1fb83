package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jon4hz/foodgram/internal/database"
	"github.com/spf13/cobra"
)

var dbStatsCmd = &cobra.Command{
	Use:   "db-stats",
	Short: "Show database statistics",
	Long:  `Display the number of users, recipes, catalog entries and relations stored in the database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		db, err := database.New(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close() //nolint: errcheck

		stats, err := db.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get database stats: %w", err)
		}

		fmt.Println("Database Statistics:")
		fmt.Printf("Users: %s\n", humanize.Comma(stats.Users))
		fmt.Printf("Recipes: %s\n", humanize.Comma(stats.Recipes))
		fmt.Printf("Tags: %s\n", humanize.Comma(stats.Tags))
		fmt.Printf("Ingredients: %s\n", humanize.Comma(stats.Ingredients))
		fmt.Printf("Subscriptions: %s\n", humanize.Comma(stats.Follows))
		fmt.Printf("Favorites: %s\n", humanize.Comma(stats.Favorites))
		fmt.Printf("Shopping Cart Entries: %s\n", humanize.Comma(stats.ShoppingCart))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbStatsCmd)
}
