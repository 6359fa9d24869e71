package dto

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/baechuer/account-service/internal/domain"
)

// maxPasswordBytes is bcrypt's input limit.
const maxPasswordBytes = 72

var (
	validate *validator.Validate
	trans    ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// report json names, not Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("username_format", validateUsernameFormat)

	english := en.New()
	trans, _ = ut.New(english, english).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, trans)
	_ = validate.RegisterTranslation("username_format", trans,
		func(t ut.Translator) error {
			return t.Add("username_format", "{0} may only contain letters, numbers, '.', '-' and '_' and must not start with '.'", true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T("username_format", fe.Field())
			return s
		},
	)
}

// validateUsernameFormat keeps usernames usable as record keys. A leading dot
// would make a demo record a hidden file.
func validateUsernameFormat(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if strings.HasPrefix(name, ".") {
		return false
	}
	for _, c := range name {
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '_' && c != '-' && c != '.' {
			return false
		}
	}
	return true
}

// validateStruct runs the tag rules and converts the first failure into a
// domain error: "required" becomes missing_field, anything else invalid_field.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.ErrInvalidField("body", err.Error())
	}

	fe := verrs[0]
	if fe.Tag() == "required" {
		return domain.ErrMissingField(fe.Field())
	}
	return domain.ErrInvalidField(fe.Field(), fe.Translate(trans))
}

func checkPasswordLen(field, pw string) error {
	if len(pw) > maxPasswordBytes {
		return domain.ErrInvalidField(field, "must be at most 72 bytes")
	}
	return nil
}
