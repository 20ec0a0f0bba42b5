package service

import (
	"errors"

	"github.com/Baaaki/foodgram/internal/apperrors"
	"gorm.io/gorm"
)

// duplicateAs maps a unique-constraint violation to domainErr and leaves
// every other error untouched.
func duplicateAs(err error, domainErr *apperrors.AppError) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domainErr
	}
	return err
}
