package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsUniqueViolation reports whether err is a unique-constraint failure.
// When constraintName is given, the match is narrowed to that constraint,
// so unrelated duplicates on the same table do not trip the check. Both
// the gorm sentinel and the raw driver message are recognized because the
// sqlite test driver does not translate every violation.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return constraintName == "" &&
		(strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed"))
}
