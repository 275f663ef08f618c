package form

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	formdecoder "github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"
)

var (
	validate = newValidator()
	decoder  = formdecoder.NewDecoder()

	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// Decode fills dst from submitted form values using the `form` struct tags.
func Decode(values url.Values, dst any) error {
	if err := decoder.Decode(dst, values); err != nil {
		return fmt.Errorf("decode form: %w", err)
	}
	return nil
}

// Validate runs the `validate` struct tags of s and turns every failure into
// a field error keyed by the field's form name.
func Validate(s any) Errors {
	var errs Errors

	err := validate.Struct(s)
	if err == nil {
		return errs
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.AddNonField(err.Error())
		return errs
	}
	for _, fe := range fieldErrs {
		errs.Add(fieldKey(fe), message(fe))
	}
	return errs
}

// fieldKey drops the top-level struct name from the namespace so nested
// fields come out as "choices[0].html".
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "eqfield":
		return "The two password fields didn't match."
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "uuid":
		return "Select a valid choice."
	default:
		return "Enter a valid value."
	}
}
