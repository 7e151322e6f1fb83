package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage recipe tags",
}

var tagAddCmdFlags struct {
	Name string
	Slug string
}

var tagAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Add a tag to the catalog",
	Example: `foodgram tag add --name Breakfast --slug breakfast`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := loadConfig()
		db, engine := openEngine(cmd.Context(), cfg)
		defer db.Close() //nolint:errcheck

		tag, err := engine.CreateTag(cmd.Context(), tagAddCmdFlags.Name, tagAddCmdFlags.Slug)
		if err != nil {
			return err
		}
		fmt.Printf("Created tag %q (id %d, slug %s)\n", tag.Name, tag.ID, tag.Slug)
		return nil
	},
}

func init() {
	tagAddCmd.Flags().StringVar(&tagAddCmdFlags.Name, "name", "", "Display name of the tag")
	tagAddCmd.Flags().StringVar(&tagAddCmdFlags.Slug, "slug", "", "URL slug of the tag")
	_ = tagAddCmd.MarkFlagRequired("name")
	_ = tagAddCmd.MarkFlagRequired("slug")

	tagCmd.AddCommand(tagAddCmd)
	rootCmd.AddCommand(tagCmd)
}
