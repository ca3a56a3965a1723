package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shopspring/decimal"
)

// shared validation tags & texts
const (
	UsernameTag  = "username"
	usernameText = "only letters, digits and @ . + - _ are allowed"

	NotBlankTag  = "notblank"
	notBlankText = "{0} cannot be blank"

	requiredText = "this field is required"
)

var usernameRegex = regexp.MustCompile(`^[\w.@+-]+$`)

// InitValidators sets up validate for the app: JSON field names, english texts,
// decimal comparisons and the shared tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(jsonFieldName)

	// min/max/gt/lt on decimals compare their float value
	validate.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})

	_ = validate.RegisterValidation(UsernameTag, usernameValidation)
	RegisterCustomTranslation(validate, translator, UsernameTag, usernameText)

	_ = validate.RegisterValidation(NotBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, NotBlankTag, notBlankText)

	for _, tag := range []string{"required", "required_with", "required_without"} {
		RegisterCustomTranslation(validate, translator, tag, requiredText, true)
	}
}

// RegisterCustomTranslation registers text for tag; "{0}" in text is replaced by the field name.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	ovrd := len(override) > 0 && override[0]
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func decimalValue(v reflect.Value) interface{} {
	if d, ok := v.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

func usernameValidation(fl validator.FieldLevel) bool {
	return usernameRegex.MatchString(fl.Field().String())
}

func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
