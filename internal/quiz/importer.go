package quiz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mariakisialiova/itechart-quiz/internal/form"
	"gopkg.in/yaml.v3"
)

// Bank is the YAML layout accepted by ImportBank.
type Bank struct {
	Categories []struct {
		Name      string `yaml:"name"`
		Questions []struct {
			HTML    string `yaml:"html"`
			Choices []struct {
				HTML    string `yaml:"html"`
				Correct bool   `yaml:"correct"`
			} `yaml:"choices"`
		} `yaml:"questions"`
	} `yaml:"categories"`
}

type ImportResult struct {
	Categories int
	Questions  int
	Rejected   []string
}

// ImportBank loads questions from YAML through the same validation as the
// authoring form. Questions that fail validation are reported, not stored.
func ImportBank(ctx context.Context, s QuizService, r io.Reader) (ImportResult, error) {
	var result ImportResult

	var bank Bank
	if err := yaml.NewDecoder(r).Decode(&bank); err != nil {
		return result, fmt.Errorf("parse question bank: %w", err)
	}

	for _, c := range bank.Categories {
		name := strings.TrimSpace(c.Name)
		category, err := s.CreateCategory(ctx, name)
		switch {
		case errors.Is(err, ErrCategoryExists):
		case err != nil:
			return result, fmt.Errorf("category %q: %w", name, err)
		default:
			result.Categories++
		}

		for i, q := range c.Questions {
			if len(q.Choices) != form.ChoiceRows {
				result.Rejected = append(result.Rejected,
					fmt.Sprintf("%s #%d: expected %d choices, got %d", name, i+1, form.ChoiceRows, len(q.Choices)))
				continue
			}

			qf := form.QuestionForm{HTML: q.HTML, Category: category.ID.String()}
			var formset form.ChoiceFormset
			for j, choice := range q.Choices {
				formset.Choices[j] = form.ChoiceForm{HTML: choice.HTML, IsCorrect: choice.Correct}
			}

			_, errs, err := s.AddQuestion(ctx, qf, formset)
			if err != nil {
				return result, fmt.Errorf("%s #%d: %w", name, i+1, err)
			}
			if !errs.Valid() {
				result.Rejected = append(result.Rejected, fmt.Sprintf("%s #%d: %s", name, i+1, describe(errs)))
				continue
			}
			result.Questions++
		}
	}
	return result, nil
}

func describe(errs form.Errors) string {
	parts := make([]string, 0, len(errs.Fields)+len(errs.NonField))
	for field, msgs := range errs.Fields {
		parts = append(parts, field+": "+strings.Join(msgs, " "))
	}
	parts = append(parts, errs.NonField...)
	return strings.Join(parts, "; ")
}
