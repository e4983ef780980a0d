package http

import (
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shorty/internal/shortcode"
)

// maxURLLength is the longest original URL accepted, in characters.
const maxURLLength = 2048

const (
	tagHTTPURL   = "httpurl"
	tagShortCode = "shortcode"
)

// newValidate returns a validator reporting fields by their json names, with the
// httpurl and shortcode tags registered. shortCodeLength is the exact length
// accepted by the shortcode tag.
func newValidate(shortCodeLength int) *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for empty tags or nil functions.
	_ = validate.RegisterValidation(tagHTTPURL, validateHTTPURL)
	_ = validate.RegisterValidation(tagShortCode, func(fl validator.FieldLevel) bool {
		return shortcode.IsValid(fl.Field().String(), shortCodeLength)
	})

	return validate
}

// validateHTTPURL accepts absolute http and https URLs with a host.
func validateHTTPURL(fl validator.FieldLevel) bool {
	return isHTTPURL(fl.Field().String())
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
