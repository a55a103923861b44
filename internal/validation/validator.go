package validation

import (
	"errors"
	"fmt"
	"html"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
)

var (
	validate  = newValidator()
	sanitizer = bluemonday.StrictPolicy()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// В сообщениях используем json-имена полей.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	// Денежные поля сравниваются как числа: gte=0, lte=100000.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		d := field.Interface().(decimal.Decimal)
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		d := field.Interface().(decimal.NullDecimal)
		if !d.Valid {
			return nil
		}
		f, _ := d.Decimal.Float64()
		return f
	}, decimal.NullDecimal{})

	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return ValidatePassword(fl.Field().String()) == nil
	})

	return v
}

// Struct проверяет запрос по тегам validate и возвращает ValidationError с первым нарушением.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperror.Wrap(err, apperror.ErrCodeValidation, "некорректные данные запроса")
	}
	return apperror.Wrap(err, apperror.ErrCodeValidation, message(fieldErrs[0]))
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("поле %s обязательно", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("поле %s должно содержать не менее %s элементов", field, fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("поле %s должно быть не короче %s символов", field, fe.Param())
		}
		return fmt.Sprintf("поле %s должно быть не меньше %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("поле %s должно содержать не более %s элементов", field, fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("поле %s должно быть не длиннее %s символов", field, fe.Param())
		}
		return fmt.Sprintf("поле %s должно быть не больше %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("поле %s должно быть не меньше %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("поле %s должно быть не больше %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("поле %s должно быть больше %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("поле %s должно быть одним из: %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("поле %s должно быть корректным email", field)
	case "password":
		if err := ValidatePassword(fmt.Sprint(fe.Value())); err != nil {
			var appErr *apperror.AppError
			if errors.As(err, &appErr) {
				return appErr.Message
			}
		}
		return "пароль не удовлетворяет требованиям"
	default:
		return fmt.Sprintf("поле %s не прошло проверку %s", field, fe.Tag())
	}
}

// maxSanitizePasses ограничивает число проходов для многократно экранированного ввода.
const maxSanitizePasses = 4

// SanitizeText убирает разметку из пользовательского текста и обрезает пробелы.
// Результат хранится как обычный текст, поэтому html-сущности раскрываются обратно.
// Раскрытые сущности снова проходят очистку, пока текст не перестанет меняться.
func SanitizeText(s string) string {
	current := s
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(sanitizer.Sanitize(current))
		if next == current {
			return strings.TrimSpace(next)
		}
		current = next
	}
	// Не сошлось: отдаём экранированный вариант, в нём нет живой разметки.
	return strings.TrimSpace(sanitizer.Sanitize(current))
}

// SanitizeOptional как SanitizeText для необязательных полей; пустой результат даёт nil.
func SanitizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	clean := SanitizeText(*s)
	if clean == "" {
		return nil
	}
	return &clean
}
