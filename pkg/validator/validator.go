package validator

import (
	"context"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator"
)

var (
	mobileRegex = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	regIDRegex  = regexp.MustCompile(`^REG-[0-9]{4,}$`)
	statusRegex = regexp.MustCompile(`^(open|closed)$`)

	shared = New()
)

const (
	ErrInvalidFormat      = "Invalid format"
	ErrFieldRequired      = "Field is required"
	ErrFieldExceedsMaxLen = "Field exceeds maximum length"
	ErrFieldBelowMinLen   = "Field is below minimum length"
	ErrFieldExceedsMaxVal = "Field exceeds maximum value"
	ErrFieldBelowMinVal   = "Field is below minimum value"
	ErrNotPositive        = "Value must be positive"
	ErrUnknownValidation  = "Unknown validation error"
)

// Error describes the first failed rule of a validated struct. Field is the
// json name of the offending field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message + ": " + e.Field
}

var messages = map[string]string{
	"required":  ErrFieldRequired,
	"max":       ErrFieldExceedsMaxLen,
	"min":       ErrFieldBelowMinLen,
	"lt":        ErrFieldExceedsMaxVal,
	"lte":       ErrFieldExceedsMaxVal,
	"gt":        ErrFieldBelowMinVal,
	"gte":       ErrFieldBelowMinVal,
	"positive":  ErrNotPositive,
	"mobile":    ErrInvalidFormat,
	"regid":     ErrInvalidFormat,
	"regstatus": ErrInvalidFormat,
}

// New builds a validator that reports json field names and knows the portal
// rules: mobile, regid, regstatus and positive.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	for tag, fn := range map[string]validator.Func{
		"mobile":    matches(mobileRegex),
		"regid":     matches(regIDRegex),
		"regstatus": matches(statusRegex),
		"positive":  validatePositiveInt,
	} {
		_ = v.RegisterValidation(tag, fn)
	}
	return v
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	}
	return name
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

func validatePositiveInt(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(int)
	return ok && val > 0
}

// Validate returns nil or an *Error for the first violated rule.
func Validate(ctx context.Context, structure any) error {
	return parseValidationErrors(shared.StructCtx(ctx, structure))
}

// Var validates a single value against a tag string, reporting it as field.
func Var(field string, value any, tag string) error {
	err := parseValidationErrors(shared.Var(value, tag))
	if verr, ok := err.(*Error); ok {
		verr.Field = field
	}
	return err
}

func parseValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	vErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(vErrors) == 0 {
		return nil
	}
	first := vErrors[0]
	msg, known := messages[first.Tag()]
	if !known {
		msg = ErrUnknownValidation
	}
	return &Error{Field: first.Field(), Message: msg}
}
