package model

import (
	"encoding/json"
	"math"
	"time"

	"github.com/pkg/errors"
)

// Duration carries a time.Duration through JSON and YAML as a Go duration string ("250ms",
// "1m30s"). Bare numbers are read as milliseconds, so job files may write `duration: 500`.
type Duration time.Duration

// MarshalJSON implements the json.Marshaler interface.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return errors.Wrap(err, "error parsing duration")
		}
		*d = Duration(parsed)
		return nil
	}

	var millis float64
	if err := json.Unmarshal(b, &millis); err != nil {
		return errors.Errorf("invalid duration: %s", b)
	}
	if math.Abs(millis) > math.MaxInt64/float64(time.Millisecond) {
		return errors.Errorf("duration %s out of range", b)
	}
	*d = Duration(millis * float64(time.Millisecond))
	return nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
