package contextutils

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their yaml names, e.g. server.session_secret
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var phonePattern = regexp.MustCompile(`^[0-9+\-()]*$`)

// IsValidEmail checks if an email address is valid using go-playground/validator
func IsValidEmail(email string) bool {
	return validate.Var(email, "email") == nil
}

// IsValidPhone reports whether phone consists only of digits, '+', '-' and parentheses
func IsValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// CharLength counts characters rather than bytes so multi-byte text is measured fairly
func CharLength(s string) int {
	return utf8.RuneCountInString(s)
}

// ValidateStruct runs the validate tags on v and lists every failing field
func ValidateStruct(v interface{}) error {
	err := validate.Struct(v)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		msg := field + " failed " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	return NewAppError(ErrorCodeValidationFailed, SeverityWarn, strings.Join(msgs, "; "), "")
}
