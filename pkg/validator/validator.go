package validator

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	PasswordMinLength = 6
	NameMaxLength     = 100
	MessageMaxLength  = 10000
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

func ValidateRegister(name, email, password string) ValidationErrors {
	errs := make(ValidationErrors)

	// Name
	name = strings.TrimSpace(name)
	if name == "" {
		errs.Add("name", "Name is required")
	} else if utf8.RuneCountInString(name) < 2 {
		errs.Add("name", "Name must be at least 2 characters")
	} else if utf8.RuneCountInString(name) > NameMaxLength {
		errs.Add("name", "Name is too long")
	}

	// Email
	validateEmail(email, errs)

	// Password
	validatePassword(password, errs)

	return errs
}

func ValidateLogin(email, password string) ValidationErrors {
	errs := make(ValidationErrors)

	validateEmail(email, errs)

	if password == "" {
		errs.Add("password", "Password is required")
	}

	return errs
}

// ValidateMessage checks the text part of an outgoing message. Emptiness is
// checked by the service since a file alone is a valid message.
func ValidateMessage(body string) ValidationErrors {
	errs := make(ValidationErrors)
	if utf8.RuneCountInString(body) > MessageMaxLength {
		errs.Add("message", fmt.Sprintf("Message must be at most %d characters", MessageMaxLength))
	}
	return errs
}

func ValidateContactName(name string) ValidationErrors {
	errs := make(ValidationErrors)
	if utf8.RuneCountInString(strings.TrimSpace(name)) > NameMaxLength {
		errs.Add("contact_name", "Contact name is too long")
	}
	return errs
}

func validateEmail(email string, errs ValidationErrors) {
	email = strings.TrimSpace(email)
	if email == "" {
		errs.Add("email", "Email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs.Add("email", "Invalid email address")
	}
}

func validatePassword(password string, errs ValidationErrors) {
	if len(password) < PasswordMinLength {
		errs.Add("password", fmt.Sprintf("Password must be at least %d characters", PasswordMinLength))
		return
	}

	var hasLetter, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsLetter(ch):
			hasLetter = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	missing := []string{}
	if !hasLetter {
		missing = append(missing, "one letter")
	}
	if !hasDigit {
		missing = append(missing, "one number")
	}

	if len(missing) > 0 {
		errs.Add("password", fmt.Sprintf("Password must contain at least %s", strings.Join(missing, " and ")))
	}
}
