// Package validate is the one gate request payloads pass before any storage
// call. Rules live in `validate` struct tags.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kazz187/taskmanagement/pkg/cerr"
)

var v = newValidator()

func newValidator() *validator.Validate {
	vv := validator.New(validator.WithRequiredStructEnabled())
	vv.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return vv
}

// Struct checks s against its tags. A violation is returned as an
// InvalidArgument error carrying msg for the client; the field details are
// kept in the wrapped error for the log.
func Struct(s any, msg string) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return cerr.NewError(cerr.Internal, "server error", err)
	}
	return cerr.NewError(cerr.InvalidArgument, msg, verrs)
}

// Fields returns the JSON names of the fields that failed validation.
func Fields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	names := make([]string, len(verrs))
	for i, fe := range verrs {
		names[i] = fe.Field()
	}
	return names
}
