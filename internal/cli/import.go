package cli

import (
	"fmt"
	"os"

	"github.com/mariakisialiova/itechart-quiz/internal/quiz"
	"github.com/spf13/cobra"
)

func newImportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <questions.yaml>",
		Short: "Import categories and questions from a YAML question bank",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			c, err := openOffline(cmd, *configPath)
			if err != nil {
				return err
			}
			defer c.Close()

			result, err := quiz.ImportBank(cmd.Context(), c.QuizContainer.Service, f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "imported %d categories and %d questions\n", result.Categories, result.Questions)
			for _, rejected := range result.Rejected {
				fmt.Fprintf(out, "rejected %s\n", rejected)
			}
			return nil
		},
	}
}
