package storage

import (
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// errReadOnly is returned by writes made through a View
var errReadOnly = errors.New("storage: write in read-only view")

// isUniqueConstraintError reports whether err is a unique or primary key
// violation of any of the supported drivers.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
