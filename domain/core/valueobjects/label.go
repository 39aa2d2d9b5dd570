package valueobjects

import (
	"regexp"
	"strings"

	pkgerrors "trackd-backend/pkg/errors"
)

const maxLabelNameLength = 50

var labelColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Label is a value object describing an issue label. Two labels with the same
// name and color are interchangeable; instances never change after creation.
type Label struct {
	name  string
	color string
}

// NewLabel creates a label with validation
func NewLabel(name, color string) (Label, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Label{}, pkgerrors.NewValidation("label name cannot be empty")
	}
	if len(name) > maxLabelNameLength {
		return Label{}, pkgerrors.NewValidation("label name too long")
	}
	if color == "" {
		color = "#cccccc"
	}
	if !labelColorPattern.MatchString(color) {
		return Label{}, pkgerrors.NewValidation("label color must be a hex value like #1d76db")
	}
	return Label{name: name, color: strings.ToLower(color)}, nil
}

// Name returns the label name
func (l Label) Name() string {
	return l.name
}

// Color returns the label color as a lowercase hex string
func (l Label) Color() string {
	return l.color
}

// Equals checks attribute equality
func (l Label) Equals(other Label) bool {
	return l.name == other.name && l.color == other.color
}

// IsZero reports whether the label is unset
func (l Label) IsZero() bool {
	return l.name == ""
}
