package database

import (
	"errors"
	"fmt"

	"github.com/adstash/adstash/internal/usecase"
	"gorm.io/gorm"
)

// translate maps gorm errors onto the usecase sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return usecase.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", usecase.ErrConflict, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", usecase.ErrValidation, err)
	}
	return err
}
