package core_test

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proft/portfolio/core"
)

type weighted struct {
	Name   string          `json:"name" validate:"required,notblank"`
	Login  string          `json:"login" validate:"omitempty,username"`
	Weight decimal.Decimal `json:"weight" validate:"min=0.1,max=10"`
}

func TestInitValidators(t *testing.T) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	tests := []struct {
		name      string
		val       weighted
		wantField string
		wantTag   string
		wantText  string
	}{
		{name: "valid", val: weighted{Name: "Lectures", Login: "j.doe+1@x", Weight: decimal.RequireFromString("1.5")}},
		{name: "weight lower bound", val: weighted{Name: "a", Weight: decimal.RequireFromString("0.1")}},
		{name: "weight upper bound", val: weighted{Name: "a", Weight: decimal.NewFromInt(10)}},
		{name: "weight too small", val: weighted{Name: "a", Weight: decimal.RequireFromString("0.05")}, wantField: "weight", wantTag: "min"},
		{name: "weight too big", val: weighted{Name: "a", Weight: decimal.RequireFromString("10.01")}, wantField: "weight", wantTag: "max"},
		{name: "missing name", val: weighted{Weight: decimal.NewFromInt(1)}, wantField: "name", wantTag: "required", wantText: "this field is required"},
		{name: "blank name", val: weighted{Name: "   ", Weight: decimal.NewFromInt(1)}, wantField: "name", wantTag: core.NotBlankTag, wantText: "name cannot be blank"},
		{name: "bad login", val: weighted{Name: "a", Login: "j doe", Weight: decimal.NewFromInt(1)}, wantField: "login", wantTag: core.UsernameTag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.val)
			if tt.wantTag == "" {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			require.Len(t, vErrs, 1)
			assert.Equal(t, tt.wantField, vErrs[0].Field())
			assert.Equal(t, tt.wantTag, vErrs[0].Tag())
			if tt.wantText != "" {
				assert.Equal(t, tt.wantText, vErrs[0].Translate(translator))
			}
		})
	}
}
