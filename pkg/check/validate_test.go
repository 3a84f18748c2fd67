package check

import (
	"testing"

	"gotest.tools/assert"
)

type pointerReceiver struct {
	A bool
}

func (t *pointerReceiver) Validate() []error {
	return []error{
		True(t.A, "field A must be true"),
	}
}

type valueReceiver struct {
	A bool
}

func (t valueReceiver) Validate() []error {
	return []error{
		True(t.A, "field A must be true"),
	}
}

type nested struct {
	Items []valueReceiver
	ByKey map[string]*pointerReceiver
}

func TestMethodSets(t *testing.T) {
	case1 := pointerReceiver{A: false}
	case2 := valueReceiver{A: false}

	const msg = "error found at root: field A must be true: expected true, got false"
	assert.ErrorContains(t, Validate(case1), msg)
	assert.ErrorContains(t, Validate(&case1), msg)
	assert.ErrorContains(t, Validate(case2), msg)
	assert.ErrorContains(t, Validate(&case2), msg)

	assert.NilError(t, Validate(valueReceiver{A: true}))
	assert.NilError(t, Validate(nil))
}

func TestValidateNested(t *testing.T) {
	n := nested{
		Items: []valueReceiver{{A: true}, {A: false}},
		ByKey: map[string]*pointerReceiver{"k": {A: false}, "nil": nil},
	}
	err := Validate(n)
	assert.ErrorContains(t, err, "2 errors found")
	assert.ErrorContains(t, err, "root.Items[1]")
	assert.ErrorContains(t, err, "root.ByKey[k]")
}

func TestValidateHelpers(t *testing.T) {
	assert.NilError(t, GreaterThanOrEqualTo(1, 1))
	assert.ErrorContains(t, GreaterThanOrEqualTo(-1, 0, "ram"), "ram: -1 is less than 0")
	assert.ErrorContains(t, NotEmpty("", "id for %s", "job"), "id for job: expected a non-empty value")
	assert.NilError(t, NotEmpty("x"))
}
