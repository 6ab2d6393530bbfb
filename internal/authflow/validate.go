package authflow

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	FieldEmail     = "email"
	FieldPassword  = "password"
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldTerms     = "terms"
)

// TermsMessage is shown when signup is attempted without accepting the terms.
const TermsMessage = "Please accept the Terms of Service and Privacy Policy to continue."

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	namePattern  = regexp.MustCompile(`^[a-zA-Z\s]+$`)
)

// rule is checked in order: required, then pattern, then minimum length.
type rule struct {
	required   bool
	patternTag string
	message    string
	minLength  int
}

var rules = map[string]rule{
	FieldEmail: {
		required:   true,
		patternTag: "email_address",
		message:    "Please enter a valid email address",
	},
	FieldPassword: {
		required:  true,
		minLength: 8,
		message:   "Password must be at least 8 characters long",
	},
	FieldFirstName: {
		required:   true,
		minLength:  2,
		patternTag: "person_name",
		message:    "First name must contain only letters and spaces",
	},
	FieldLastName: {
		required:   true,
		minLength:  2,
		patternTag: "person_name",
		message:    "Last name must contain only letters and spaces",
	},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	must := func(tag string, re *regexp.Regexp) {
		err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		})
		if err != nil {
			panic(fmt.Sprintf("registering %s validation: %v", tag, err))
		}
	}
	must("email_address", emailPattern)
	must("person_name", namePattern)
	return v
}

// ValidateField checks a single trimmed input value and returns the message
// to show, or "" when the value is acceptable. Unknown fields always pass.
func ValidateField(field, value string) string {
	r, ok := rules[field]
	if !ok {
		return ""
	}
	value = strings.TrimSpace(value)

	if r.required && validate.Var(value, "required") != nil {
		return FormatFieldName(field) + " is required"
	}
	if value == "" {
		return ""
	}
	if r.patternTag != "" && validate.Var(value, r.patternTag) != nil {
		return r.message
	}
	if r.minLength > 0 && validate.Var(value, fmt.Sprintf("min=%d", r.minLength)) != nil {
		return fmt.Sprintf("%s must be at least %d characters long", FormatFieldName(field), r.minLength)
	}
	return ""
}

// FormatFieldName turns "first_name" into "First Name".
func FormatFieldName(field string) string {
	parts := strings.Split(field, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// ValidationError collects field messages and form-level notices from a
// failed local validation. Nothing was sent to the backend.
type ValidationError struct {
	Fields  map[string]string
	Notices []string
}

func (e *ValidationError) Error() string {
	var parts []string
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	parts = append(parts, e.Notices...)
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) empty() bool {
	return len(e.Fields) == 0 && len(e.Notices) == 0
}

func (e *ValidationError) setField(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

// LoginForm is what the user submits to sign in.
type LoginForm struct {
	Email    string
	Password string
	Remember bool
}

// ValidateLogin applies the submit-time checks for the login form.
func ValidateLogin(f LoginForm) *ValidationError {
	e := &ValidationError{}
	checkCredentials(e, strings.TrimSpace(f.Email), f.Password)
	if e.empty() {
		return nil
	}
	return e
}

// ValidateSignup applies the submit-time checks for the accumulated signup
// data. A missing terms acceptance is a notice rather than a field error.
func ValidateSignup(d SignupData) *ValidationError {
	e := &ValidationError{}
	checkCredentials(e, d.String(FieldEmail), d.String(FieldPassword))
	if len(d.String(FieldFirstName)) < 2 {
		e.setField(FieldFirstName, "First name must be at least 2 characters long")
	}
	if len(d.String(FieldLastName)) < 2 {
		e.setField(FieldLastName, "Last name must be at least 2 characters long")
	}
	if !d.Bool(FieldTerms) {
		e.Notices = append(e.Notices, TermsMessage)
	}
	if e.empty() {
		return nil
	}
	return e
}

func checkCredentials(e *ValidationError, email, password string) {
	if email == "" || validate.Var(email, "email_address") != nil {
		e.setField(FieldEmail, "Please enter a valid email address")
	}
	if len(password) < 8 {
		e.setField(FieldPassword, "Password must be at least 8 characters long")
	}
}
