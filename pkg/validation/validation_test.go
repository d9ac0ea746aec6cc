package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "storefront/pkg/domain-errors"
)

type loginForm struct {
	Email    string `validate:"required,notblank"`
	Password string `validate:"required"`
}

type checkoutForm struct {
	PaymentMethod string `validate:"required,oneof=cod paypal"`
	Phone         string `validate:"required,len=10,numeric"`
	Note          string `validate:"max=5"`
}

type addLineForm struct {
	ProductID int64 `validate:"required,gt=0"`
}

func TestValidate(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		assert.NoError(t, Validate(loginForm{Email: "a@b.c", Password: "pw"}))
	})

	t.Run("required", func(t *testing.T) {
		err := Validate(loginForm{Password: "pw"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Equal(t, "email is required", err.Error())
	})

	t.Run("notblank", func(t *testing.T) {
		err := Validate(loginForm{Email: "   ", Password: "pw"})
		assert.Equal(t, "email must not be blank", err.Error())
	})

	t.Run("oneof", func(t *testing.T) {
		err := Validate(checkoutForm{PaymentMethod: "card", Phone: "0123456789"})
		assert.Equal(t, "payment_method must be one of [cod paypal]", err.Error())
	})

	t.Run("len", func(t *testing.T) {
		err := Validate(checkoutForm{PaymentMethod: "cod", Phone: "123"})
		assert.Equal(t, "phone must be exactly 10 characters", err.Error())
	})

	t.Run("numeric", func(t *testing.T) {
		err := Validate(checkoutForm{PaymentMethod: "cod", Phone: "09012345ab"})
		assert.Equal(t, "phone must contain only digits", err.Error())
	})

	t.Run("max", func(t *testing.T) {
		err := Validate(checkoutForm{PaymentMethod: "cod", Phone: "0901234567", Note: "too long"})
		assert.Equal(t, "note must be at most 5 characters", err.Error())
	})

	t.Run("gt", func(t *testing.T) {
		err := Validate(addLineForm{ProductID: -3})
		assert.Equal(t, "product_id must be greater than 0", err.Error())
	})
}
