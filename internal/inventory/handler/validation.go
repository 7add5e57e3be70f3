package handler

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
	"github.com/padbank/padbank-backend/pkg/httputil"
)

var registerOnce sync.Once

// RegisterValidators adds the brand_type and storage_location tags used by
// the request types. It is safe to call more than once.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		if err = httputil.RegisterCustomValidation("brand_type", func(fl validator.FieldLevel) bool {
			return domain.BrandType(fl.Field().String()).IsValid()
		}); err != nil {
			return
		}
		err = httputil.RegisterCustomValidation("storage_location", func(fl validator.FieldLevel) bool {
			return domain.StorageLocation(fl.Field().String()).IsValid()
		})
	})
	return err
}
