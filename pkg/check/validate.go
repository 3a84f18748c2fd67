package check

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Validatable is implemented by anything that has fields that should be validated.
type Validatable interface {
	Validate() []error
}

// Validate walks v and every value reachable through its exported fields, slices and maps,
// calling Validate on anything that implements Validatable. The errors of all failed validators
// are combined into a single returned error.
func Validate(v interface{}) error {
	var result *multierror.Error
	for _, err := range validate(reflect.ValueOf(v), "root") {
		result = multierror.Append(result, err)
	}
	if result == nil {
		return nil
	}
	result.ErrorFormat = formatErrors
	return result.ErrorOrNil()
}

func formatErrors(errs []error) string {
	lines := make([]string, 0, len(errs))
	for _, err := range errs {
		lines = append(lines, err.Error())
	}
	sort.Strings(lines)
	return fmt.Sprintf("Check Failed! %d errors found:\n\t%s", len(errs), strings.Join(lines, "\n\t"))
}

func validate(v reflect.Value, path string) []error {
	if !v.IsValid() {
		return nil
	}

	var errs []error
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return validate(v.Elem(), path)
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			errs = append(errs, validate(v.Index(i), fmt.Sprintf("%s[%d]", path, i))...)
		}
	case reflect.Map:
		for _, key := range v.MapKeys() {
			errs = append(errs, validate(v.MapIndex(key),
				fmt.Sprintf("%s[%v]", path, key.Interface()))...)
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if !v.Field(i).CanInterface() {
				continue
			}
			errs = append(errs, validate(v.Field(i),
				fmt.Sprintf("%s.%s", path, v.Type().Field(i).Name))...)
		}
	}

	// Copy into an addressable value so that both value and pointer receivers are found.
	addressable := reflect.New(v.Type())
	addressable.Elem().Set(v)
	if validatable, ok := addressable.Interface().(Validatable); ok {
		for _, err := range validatable.Validate() {
			if err != nil {
				errs = append(errs, errors.Wrapf(err, "error found at %s", path))
			}
		}
	}

	return errs
}
