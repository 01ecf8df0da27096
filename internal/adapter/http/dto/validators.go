package dto

import (
	"html"
	"reflect"
	"regexp"
	"strings"

	"token-ledger/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var safeStringRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", validateSafeID)
		_ = v.RegisterValidation("account_id", validateAccountID)
	}
}

// validateSafeID allows alphanumeric, underscore, dash, and dot.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeStringRe.MatchString(fl.Field().String())
}

// validateAccountID accepts exactly 64 hex characters.
func validateAccountID(fl validator.FieldLevel) bool {
	_, err := domain.ParseAccountID(fl.Field().String())
	return err == nil
}

// SanitizeStruct trims and HTML-escapes the exported string and *string
// fields of a struct pointer. Fields tagged `sanitize:"-"` are left alone,
// which keeps passwords byte-exact.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	rv = rv.Elem()
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		if rt.Field(i).Tag.Get("sanitize") == "-" {
			continue
		}
		if s, ok := stringField(rv.Field(i)); ok {
			s.SetString(sanitize(s.String()))
		}
	}
}

// stringField returns the settable string behind f, following one pointer.
func stringField(f reflect.Value) (reflect.Value, bool) {
	if !f.CanSet() {
		return reflect.Value{}, false
	}
	if f.Kind() == reflect.Ptr {
		if f.IsNil() {
			return reflect.Value{}, false
		}
		f = f.Elem()
	}
	return f, f.Kind() == reflect.String
}

func sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
