package form

import "strings"

// ChoiceRows is the fixed number of choice sub-forms rendered with a question.
const ChoiceRows = 4

type LoginForm struct {
	Username string `form:"username" validate:"required,max=150"`
	Password string `form:"password" validate:"required"`
	Next     string `form:"next"`
}

func (f *LoginForm) Clean() {
	f.Username = strings.TrimSpace(f.Username)
}

type RegistrationForm struct {
	Username  string `form:"username" validate:"required,max=150,username"`
	Password1 string `form:"password1" validate:"required,min=8,max=128"`
	Password2 string `form:"password2" validate:"required,eqfield=Password1"`
}

func (f *RegistrationForm) Clean() {
	f.Username = strings.TrimSpace(f.Username)
}

type QuestionForm struct {
	HTML     string `form:"html" validate:"required,max=2000"`
	Category string `form:"category" validate:"required,uuid"`
}

func (f *QuestionForm) Clean() {
	f.HTML = strings.TrimSpace(f.HTML)
	f.Category = strings.TrimSpace(f.Category)
}

type ChoiceForm struct {
	HTML      string `form:"html" validate:"required,max=1000"`
	IsCorrect bool   `form:"is_correct"`
}

// ChoiceFormset holds the choice rows submitted together with a question,
// named choices[0].html, choices[0].is_correct and so on.
type ChoiceFormset struct {
	Choices [ChoiceRows]ChoiceForm `form:"choices" validate:"dive"`
}

func (f *ChoiceFormset) Clean() {
	for i := range f.Choices {
		f.Choices[i].HTML = strings.TrimSpace(f.Choices[i].HTML)
	}
}

// Validate checks every row and then requires exactly one correct choice.
func (f ChoiceFormset) Validate() Errors {
	errs := Validate(f)

	correct := 0
	for _, c := range f.Choices {
		if c.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		errs.AddNonField("Exactly one choice must be marked as correct.")
	}
	return errs
}
