package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/foodgram/internal/api/models"
	"github.com/spf13/cobra"
)

var importIngredientsCmd = &cobra.Command{
	Use:   "import-ingredients <file.json>",
	Short: "Import ingredients into the catalog",
	Long: `Import ingredients from a JSON file into the catalog.

The file holds a list of {"name": ..., "measurement_unit": ...} objects.
Ingredients whose name already exists are skipped, so the import can be run repeatedly.`,
	Example: `foodgram import-ingredients data/ingredients.json`,
	Args:    cobra.ExactArgs(1),
	RunE:    importIngredients,
}

func init() {
	rootCmd.AddCommand(importIngredientsCmd)
}

func importIngredients(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read ingredients file: %w", err)
	}
	var ingredients []models.Ingredient
	if err := json.Unmarshal(data, &ingredients); err != nil {
		return fmt.Errorf("failed to parse ingredients file: %w", err)
	}

	cfg := loadConfig()
	db, engine := openEngine(cmd.Context(), cfg)
	defer db.Close() //nolint:errcheck

	n, err := engine.ImportIngredients(cmd.Context(), ingredients)
	if err != nil {
		return err
	}
	log.Info("Imported ingredients", "new", n, "in_file", len(ingredients))
	return nil
}
