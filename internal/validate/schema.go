// Package validate holds the record checks run by the validation pipeline:
// the structural schema contract, golden-set comparison and rendering safety.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Dogebooch/DougHub-sub001/internal/model"
	"github.com/Dogebooch/DougHub-sub001/internal/textnorm"
)

// questionOpeners are stem openings accepted as a question without a "?".
var questionOpeners = []string{
	"which", "what", "how", "select", "choose", "identify",
}

// SchemaValidator checks a QuestionRecord against its structural contract:
// a non-blank stem and at least one answer choice, uniquely labeled, each
// with non-blank text and a peer percentage within 0-100 when present.
type SchemaValidator struct {
	validate *validator.Validate
}

// NewSchemaValidator creates a SchemaValidator.
func NewSchemaValidator() *SchemaValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// RegisterValidation only fails on an empty tag or a nil func.
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return !IsBlank(fl.Field().String())
	})
	return &SchemaValidator{validate: v}
}

// Validate returns one diagnostic per contract violation; none means the
// record satisfies the contract.
func (s *SchemaValidator) Validate(rec model.QuestionRecord) []string {
	var diagnostics []string

	if err := s.validate.Struct(rec); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []string{err.Error()}
		}
		for _, e := range verrs {
			diagnostics = append(diagnostics, fmt.Sprintf("%s %s", fieldPath(e), formatValidationError(e)))
		}
	}

	if !IsBlank(rec.StemHTML) && !LooksLikeQuestion(rec.StemHTML) {
		diagnostics = append(diagnostics, "stem_html does not read as a question")
	}
	return diagnostics
}

// IsBlank reports whether a fragment has neither visible text nor an image.
func IsBlank(fragment string) bool {
	return textnorm.Text(fragment) == "" && !strings.Contains(strings.ToLower(fragment), "<img")
}

// LooksLikeQuestion reports whether the stem asks something: it contains a
// question mark or opens with an interrogative or an instruction to choose.
func LooksLikeQuestion(stemHTML string) bool {
	text := textnorm.Fold(stemHTML)
	if strings.Contains(text, "?") {
		return true
	}
	for _, opener := range questionOpeners {
		if strings.HasPrefix(text, opener+" ") {
			return true
		}
	}
	return strings.Contains(text, "which of the following")
}

// fieldPath drops the root struct name from the error namespace.
func fieldPath(e validator.FieldError) string {
	_, rest, found := strings.Cut(e.Namespace(), ".")
	if !found {
		return e.Field()
	}
	return rest
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "nonblank":
		return "must not be blank"
	case "min":
		return fmt.Sprintf("must have at least %s item(s)", e.Param())
	case "unique":
		return fmt.Sprintf("must have unique %s values", strings.ToLower(e.Param()))
	case "gte":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", e.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}
