package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
)

// RegisterValidators installs the ledger's custom binding tags on gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return v.RegisterValidation("accountnumber", func(fl validator.FieldLevel) bool {
		return domain.ValidAccountNumber(fl.Field().String())
	})
}
