package check

import (
	"fmt"

	"github.com/pkg/errors"
)

// True checks whether the condition is true. This method returns an error with the provided
// message if the check fails.
func True(condition bool, msgAndArgs ...interface{}) error {
	return check(condition, msgAndArgs, "expected true, got false")
}

// NotEmpty checks whether the string is non-empty.
func NotEmpty(actual string, msgAndArgs ...interface{}) error {
	return check(actual != "", msgAndArgs, "expected a non-empty value")
}

// GreaterThanOrEqualTo checks whether actual is greater than or equal to expected.
func GreaterThanOrEqualTo(actual, expected int64, msgAndArgs ...interface{}) error {
	return check(actual >= expected, msgAndArgs, "%d is less than %d", actual, expected)
}

// Contains checks whether the actual value is contained in the expected list. This method returns
// an error with the provided message if the check fails.
func Contains(actual interface{}, expected []interface{}, msgAndArgs ...interface{}) error {
	for _, value := range expected {
		if value == actual {
			return nil
		}
	}
	return check(false, msgAndArgs, "%v not in %v", actual, expected)
}

func check(condition bool, msgAndArgs []interface{}, format string, args ...interface{}) error {
	if condition {
		return nil
	}
	reason := fmt.Sprintf(format, args...)
	if msg := message(msgAndArgs...); msg != "" {
		return errors.Errorf("%s: %s", msg, reason)
	}
	return errors.New(reason)
}

func message(msgAndArgs ...interface{}) string {
	switch {
	case len(msgAndArgs) == 0:
		return ""
	case len(msgAndArgs) == 1:
		if msg, ok := msgAndArgs[0].(string); ok {
			return msg
		}
		return fmt.Sprintf("%+v", msgAndArgs[0])
	default:
		format, ok := msgAndArgs[0].(string)
		if !ok {
			return fmt.Sprint(msgAndArgs...)
		}
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
}
