package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	apperrors "ccasscli/internal/errors"
	"ccasscli/pkg/contracts/domain"
)

// RequestBinder fills request structs from chi URL params and the query
// string, then validates them with struct tags. Fields are bound by their
// `param:"name"` or `query:"name"` tag; embedded structs are walked.
type RequestBinder struct {
	validator *validator.Validate
}

// NewRequestBinder creates a binder whose validation errors use JSON field
// names
func NewRequestBinder() *RequestBinder {
	v := validator.New()
	v.RegisterValidation("isodate", isISODate)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestBinder{validator: v}
}

// Validator exposes the underlying validator
func (b *RequestBinder) Validator() *validator.Validate {
	return b.validator
}

// Bind decodes r into dst, which must be a pointer to a struct. Malformed
// values are reported as a VALIDATION_FAILED APIError; rule violations as
// an APIError listing every failing field.
func (b *RequestBinder) Bind(r *http.Request, dst interface{}) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("bind target must be a pointer to struct, got %T", dst)
	}

	if err := b.decode(r, rv.Elem()); err != nil {
		return err
	}

	if err := b.validator.Struct(dst); err != nil {
		var valErrs validator.ValidationErrors
		if errors.As(err, &valErrs) {
			fields := make([]apperrors.ValidationError, 0, len(valErrs))
			for _, fe := range valErrs {
				fields = append(fields, apperrors.ValidationError{
					Field:   fe.Field(),
					Message: formatValidationError(fe),
				})
			}
			return apperrors.ErrValidationFields(fields)
		}
		return err
	}
	return nil
}

func (b *RequestBinder) decode(r *http.Request, v reflect.Value) error {
	t := v.Type()
	query := r.URL.Query()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)

		if field.Anonymous && fv.Kind() == reflect.Struct {
			if err := b.decode(r, fv); err != nil {
				return err
			}
			continue
		}
		if !fv.CanSet() {
			continue
		}

		var name, raw string
		if p := field.Tag.Get("param"); p != "" {
			name, raw = p, chi.URLParam(r, p)
		} else if q := field.Tag.Get("query"); q != "" {
			name, raw = q, strings.TrimSpace(query.Get(q))
		} else {
			continue
		}
		if raw == "" {
			continue
		}

		if err := setField(fv, raw); err != nil {
			return apperrors.ErrValidation(name, err.Error())
		}
	}
	return nil
}

func setField(fv reflect.Value, raw string) error {
	if fv.Kind() == reflect.Ptr {
		elem := reflect.New(fv.Type().Elem())
		if err := setField(elem.Elem(), raw); err != nil {
			return err
		}
		fv.Set(elem)
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("must be a valid integer")
		}
		fv.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("must be a valid number")
		}
		fv.SetFloat(f)
	case reflect.Bool:
		bv, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("must be true or false")
		}
		fv.SetBool(bv)
	default:
		return fmt.Errorf("unsupported field kind %s", fv.Kind())
	}
	return nil
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "datetime", "isodate":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// isISODate validates a YYYY-MM-DD calendar date
func isISODate(fl validator.FieldLevel) bool {
	_, err := domain.ParseDate(fl.Field().String())
	return err == nil
}
