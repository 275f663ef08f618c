package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mariakisialiova/itechart-quiz/internal/quiz"
	"github.com/spf13/cobra"
)

func newCategoryCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage question categories",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return errors.New("category name is empty")
			}

			c, err := openOffline(cmd, *configPath)
			if err != nil {
				return err
			}
			defer c.Close()

			category, err := c.QuizContainer.Service.CreateCategory(cmd.Context(), name)
			if errors.Is(err, quiz.ErrCategoryExists) {
				fmt.Fprintf(cmd.OutOrStdout(), "category %q already exists (%s)\n", category.Name, category.ID)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "category %q created (%s)\n", category.Name, category.ID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openOffline(cmd, *configPath)
			if err != nil {
				return err
			}
			defer c.Close()

			categories, err := c.QuizContainer.Service.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			for _, category := range categories {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", category.ID, category.Name)
			}
			return nil
		},
	})
	return cmd
}
