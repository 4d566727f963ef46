package validate

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	paisaPattern    = regexp.MustCompile(`^[0-9]{1,15}$`)
	selectorPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)
)

// New returns a validator with the gateway specific rules registered
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	CustomValidate(v)
	return v
}

// CustomValidate registers the custom rules on v:
//
//	paisa     amount in the smallest currency unit, digits only
//	selector  tenant selector usable as a file name component
func CustomValidate(v *validator.Validate) {
	_ = v.RegisterValidation("paisa", func(fl validator.FieldLevel) bool {
		return IsPaisa(fl.Field().String())
	})
	_ = v.RegisterValidation("selector", func(fl validator.FieldLevel) bool {
		return IsSelector(fl.Field().String())
	})
}

// IsPaisa reports whether amount is a whole number of paisa
func IsPaisa(amount string) bool {
	return paisaPattern.MatchString(strings.TrimSpace(amount))
}

// IsSelector reports whether s can identify a configuration
func IsSelector(s string) bool {
	return selectorPattern.MatchString(s)
}

// jsonName reports fields by their JSON name so errors match request bodies
func jsonName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	}
	return name
}
