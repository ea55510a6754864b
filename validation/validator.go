// Package validation checks user input before it reaches the backend: search
// queries, the admin login form and the inventory upsert form.
package validation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/giygas/medicaments-lookup/apiclient"
	"github.com/giygas/medicaments-lookup/interfaces"
)

const (
	maxFieldLength = 120
	maxQuantity    = 1_000_000
	expiryLayout   = "2006-01-02"
)

// Markup and script fragments refused in free-text inventory fields. Search
// queries are not checked against this list; they are only ever echoed back
// through escaped templates and URL-encoded into backend requests.
var dangerousPatterns = []string{
	"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
	"onclick=", "onmouseover=", "eval(", "expression(",
	"../", "..\\", "%2e%2e", "file://",
	"{$ne:", "{$gt:", "{$where:",
}

// Compile-time check to ensure InputValidator implements interfaces.InputValidator
var _ interfaces.InputValidator = (*InputValidator)(nil)

// InputValidator validates form and query input
type InputValidator struct{}

// NewInputValidator creates a new input validator
func NewInputValidator() *InputValidator {
	return &InputValidator{}
}

// UpsertForm is the raw inventory form as submitted
type UpsertForm = interfaces.UpsertForm

// ValidateQuery accepts empty queries (they clear the page) and any text
// search term. Only input that cannot be sent to the backend is refused.
func (v *InputValidator) ValidateQuery(query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	if !utf8.ValidString(query) || strings.IndexFunc(query, unicode.IsControl) >= 0 {
		return fieldError("q", "Search contains invalid characters")
	}

	return nil
}

// ValidateLogin checks both fields are present. The messages are shown to the
// user as is.
func (v *InputValidator) ValidateLogin(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return fieldError("email", "Email is required")
	}
	if password == "" {
		return fieldError("password", "Password is required")
	}
	return nil
}

// ValidateUpsert checks the inventory form and converts it to a request
func (v *InputValidator) ValidateUpsert(form UpsertForm) (apiclient.UpsertRequest, error) {
	req := apiclient.UpsertRequest{
		BrandName:   strings.TrimSpace(form.BrandName),
		GenericName: strings.TrimSpace(form.GenericName),
		Strength:    strings.TrimSpace(form.Strength),
		Expiry:      strings.TrimSpace(form.Expiry),
	}

	required := []struct {
		field, label, value string
	}{
		{"brandName", "Brand name", req.BrandName},
		{"genericName", "Generic name", req.GenericName},
		{"strength", "Strength", req.Strength},
	}
	for _, r := range required {
		if r.value == "" {
			return req, fieldError(r.field, r.label+" is required")
		}
		if err := checkText(r.field, r.label, r.value); err != nil {
			return req, err
		}
	}

	qty, err := strconv.Atoi(strings.TrimSpace(form.Quantity))
	if err != nil || qty <= 0 {
		return req, fieldError("quantity", "Quantity must be a positive whole number")
	}
	if qty > maxQuantity {
		return req, fieldError("quantity", fmt.Sprintf("Quantity must not exceed %d", maxQuantity))
	}
	req.Quantity = qty

	if req.Expiry != "" {
		if _, err := time.Parse(expiryLayout, req.Expiry); err != nil {
			return req, fieldError("expiry", "Expiry must be a date formatted YYYY-MM-DD")
		}
	}

	return req, nil
}

func checkText(field, label, value string) error {
	if utf8.RuneCountInString(value) > maxFieldLength {
		return fieldError(field, fmt.Sprintf("%s is too long: maximum %d characters", label, maxFieldLength))
	}
	if strings.IndexFunc(value, unicode.IsControl) >= 0 {
		return fieldError(field, label+" contains invalid characters")
	}
	lower := strings.ToLower(value)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lower, pattern) {
			return fieldError(field, label+" contains potentially dangerous content")
		}
	}
	return nil
}

func fieldError(field, message string) error {
	return &apiclient.ValidationError{Field: field, Message: message}
}
