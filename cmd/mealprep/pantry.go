package main

import (
	"github.com/spf13/cobra"
)

var (
	ingredientID string
	itemName     string
	itemCategory string
	amount       float64
	unit         string

	pantryCmd = &cobra.Command{
		Use:   "pantry",
		Short: "Manage the virtual pantry",
	}
	pantryAddCmd = &cobra.Command{
		Use:   "add",
		Short: "Add an ingredient quantity",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := run(cmd, "pantry_add", map[string]any{
				"user_id":       userID,
				"ingredient_id": ingredientID,
				"name":          itemName,
				"category":      itemCategory,
				"amount":        amount,
				"unit":          unit,
			})
			return err
		},
	}
	pantryConsumeCmd = &cobra.Command{
		Use:   "consume",
		Short: "Take an ingredient quantity out of the pantry",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := run(cmd, "pantry_consume", map[string]any{
				"user_id":       userID,
				"ingredient_id": ingredientID,
				"amount":        amount,
				"unit":          unit,
			})
			return err
		},
	}
	pantryListCmd = &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List what the pantry holds",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := run(cmd, "pantry_get", map[string]any{"user_id": userID})
			return err
		},
	}
)

func init() {
	for _, c := range []*cobra.Command{pantryAddCmd, pantryConsumeCmd} {
		c.Flags().StringVar(&ingredientID, "ingredient", "", "ingredient id")
		c.Flags().Float64Var(&amount, "amount", 0, "quantity")
		c.Flags().StringVar(&unit, "unit", "", "unit of the quantity")
		c.MarkFlagRequired("ingredient") // nolint: errcheck
		c.MarkFlagRequired("amount")     // nolint: errcheck
	}
	pantryAddCmd.Flags().StringVar(&itemName, "name", "", "display name")
	pantryAddCmd.Flags().StringVar(&itemCategory, "category", "", "category used for sorting")

	pantryCmd.AddCommand(pantryAddCmd, pantryConsumeCmd, pantryListCmd)
	rootCmd.AddCommand(pantryCmd)
}
