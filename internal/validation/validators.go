package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"stashbot/internal/models"
)

// ErrInvalid is the base error for request validation failures.
// Callers wrap it with detail; handlers match it with errors.Is.
var ErrInvalid = errors.New("invalid input")

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("item_kind", validateItemKind); err != nil {
		panic(fmt.Sprintf("failed to register item_kind validator: %v", err))
	}
	if err := Validate.RegisterValidation("status_filter", validateStatusFilter); err != nil {
		panic(fmt.Sprintf("failed to register status_filter validator: %v", err))
	}
}

// validateItemKind validates that a string is a valid Kind enum value
func validateItemKind(fl validator.FieldLevel) bool {
	return models.ValidKind(models.Kind(fl.Field().String()))
}

// validateStatusFilter validates that a string is a valid StatusFilter enum value
func validateStatusFilter(fl validator.FieldLevel) bool {
	switch models.StatusFilter(fl.Field().String()) {
	case models.StatusFilterAll, models.StatusFilterActive, models.StatusFilterDone:
		return true
	default:
		return false
	}
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateKind validates a Kind string value
func ValidateKind(value string) error {
	if !models.ValidKind(models.Kind(value)) {
		return fmt.Errorf("%w: kind %q (must be 'task', 'idea', or 'note')", ErrInvalid, value)
	}
	return nil
}

// ValidateStatusFilter validates a StatusFilter string value
func ValidateStatusFilter(value string) error {
	switch models.StatusFilter(value) {
	case models.StatusFilterAll, models.StatusFilterActive, models.StatusFilterDone:
		return nil
	default:
		return fmt.Errorf("%w: status %q (must be 'all', 'active', or 'done')", ErrInvalid, value)
	}
}
