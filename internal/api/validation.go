package api

import (
	"sync" // One-time registration

	"notes_marketplace/internal/service" // IBAN rules

	"github.com/gin-gonic/gin/binding"       // Gin's validator engine
	"github.com/go-playground/validator/v10" // Custom validation tags
)

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags used by request structs
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("iban", func(fl validator.FieldLevel) bool {
			return service.ValidIBAN(fl.Field().String())
		})
	})
}
