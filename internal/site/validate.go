package site

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"
)

// ValidationError lists the draft fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("site: invalid draft fields [%s]", strings.Join(names, ", "))
}

const maxFieldLength = 5000

// ValidateDraft checks the fields a partner enquiry needs.
func ValidateDraft(d Draft) error {
	fields := map[string]string{}
	if strings.TrimSpace(d.Name) == "" {
		fields["name"] = "Please tell us your name."
	}
	email := strings.TrimSpace(d.Email)
	switch {
	case email == "":
		fields["email"] = "Please enter your email address."
	default:
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			fields["email"] = "Please enter a valid email address."
		}
	}
	if strings.TrimSpace(d.Message) == "" {
		fields["message"] = "Please add a short message."
	}
	for name, value := range map[string]string{"name": d.Name, "company": d.Company, "message": d.Message} {
		if len(value) > maxFieldLength {
			fields[name] = "This field is too long."
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
