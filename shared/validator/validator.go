// shared/validator/validator.go
package validator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/Ftotnem/HACKATHON-SERVICES/shared/models"
	"github.com/go-playground/validator/v10"
)

// Failure reasons, reported in this priority order.
const (
	ReasonMissingFields = "missing fields"
	ReasonInvalidEmail  = "invalid email"
	ReasonInvalidPhone  = "invalid phone"
	ReasonInvalidChoice = "invalid choice"
	ReasonTooLong       = "too long"
	ReasonInvalid       = "invalid value"
)

var (
	global     *validator.Validate
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRegex = regexp.MustCompile(`^[+]?[\d\s\-()]{10,}$`)

	enumSets = map[string]func(string) bool{
		"gender":        func(s string) bool { return models.Gender(s).Valid() },
		"department":    func(s string) bool { return models.Department(s).Valid() },
		"batch":         func(s string) bool { return models.Batch(s).Valid() },
		"year_of_study": func(s string) bool { return models.YearOfStudy(s).Valid() },
	}

	tagPriority = map[string]int{
		"required":    0,
		"email_shape": 1,
		"phone":       2,
		"enum":        3,
		"max":         4,
	}
)

func init() {
	SetValidator(New())
}

// ValidationError describes the highest-priority rule a value broke.
// For missing fields every empty field is listed.
type ValidationError struct {
	Reason string
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Fields, ", "))
}

// Field returns the first offending field.
func (e *ValidationError) Field() string {
	if len(e.Fields) == 0 {
		return ""
	}
	return e.Fields[0]
}

// New returns a validator with the domain tags registered. Field names in
// errors follow the json tag.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("email_shape", validateEmail)
	_ = v.RegisterValidation("phone", validatePhone)
	_ = v.RegisterValidation("enum", validateEnum)
	return v
}

func SetValidator(v *validator.Validate) {
	global = v
}

func Validator() *validator.Validate {
	return global
}

// IsEmail reports whether s has the local@domain.tld shape.
func IsEmail(s string) bool {
	return emailRegex.MatchString(s)
}

func validateEmail(fl validator.FieldLevel) bool {
	return IsEmail(fl.Field().String())
}

func validatePhone(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(fl.Field().String())
}

func validateEnum(fl validator.FieldLevel) bool {
	check, ok := enumSets[fl.Param()]
	if !ok {
		return false
	}
	return check(fl.Field().String())
}

// Validate checks structure against its validate tags and returns a
// *ValidationError for rule failures.
func Validate(ctx context.Context, structure any) error {
	return parseValidationErrors(Validator().StructCtx(ctx, structure))
}

func parseValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	var vErrors validator.ValidationErrors
	if !errors.As(err, &vErrors) {
		return err
	}
	if len(vErrors) == 0 {
		return nil
	}

	sorted := make([]validator.FieldError, len(vErrors))
	copy(sorted, vErrors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return priority(sorted[i].Tag()) < priority(sorted[j].Tag())
	})

	first := sorted[0]
	ve := &ValidationError{Reason: reasonFor(first.Tag())}
	for _, fe := range sorted {
		if fe.Tag() != first.Tag() {
			break
		}
		ve.Fields = append(ve.Fields, fe.Field())
		if first.Tag() != "required" {
			break // Only missing fields are reported as a group
		}
	}
	return ve
}

func priority(tag string) int {
	if p, ok := tagPriority[tag]; ok {
		return p
	}
	return len(tagPriority)
}

func reasonFor(tag string) string {
	switch tag {
	case "required":
		return ReasonMissingFields
	case "email_shape":
		return ReasonInvalidEmail
	case "phone":
		return ReasonInvalidPhone
	case "enum":
		return ReasonInvalidChoice
	case "max":
		return ReasonTooLong
	default:
		return ReasonInvalid
	}
}
