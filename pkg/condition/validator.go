// Package condition checks monitored channels against their expected values
// after every acquisition.
package condition

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/aretw0/sweep/pkg/domain"
)

// MinTolerance is the smallest tolerance applied to numeric comparisons.
const MinTolerance = 1e-6

// Validator evaluates a fixed list of conditions.
type Validator struct {
	conditions []domain.Condition
}

// NewValidator validates conds and builds a Validator. A zero Policy means
// PolicyAbort.
func NewValidator(conds ...domain.Condition) (*Validator, error) {
	v := &Validator{conditions: make([]domain.Condition, len(conds))}
	for i, c := range conds {
		if c.ID == "" {
			return nil, domain.Configf("conditions", "condition %d has no channel id", i)
		}
		switch c.Policy {
		case "":
			c.Policy = domain.PolicyAbort
		case domain.PolicyRetry, domain.PolicyAbort:
		default:
			return nil, domain.Configf("conditions", "condition %q has unknown policy %q", c.ID, c.Policy)
		}
		if c.Tolerance < 0 || math.IsNaN(c.Tolerance) {
			return nil, domain.Configf("conditions", "condition %q has invalid tolerance %g", c.ID, c.Tolerance)
		}
		if c.Expected == nil {
			return nil, domain.Configf("conditions", "condition %q has no expected value", c.ID)
		}
		v.conditions[i] = c
	}
	return v, nil
}

// Conditions returns a copy of the configured conditions.
func (v *Validator) Conditions() []domain.Condition {
	if v == nil {
		return nil
	}
	return append([]domain.Condition(nil), v.conditions...)
}

// Len returns the number of conditions.
func (v *Validator) Len() int {
	if v == nil {
		return 0
	}
	return len(v.conditions)
}

// Validate compares values, aligned with the conditions, and returns the
// first failure as a *domain.ConditionError. Abort-policy failures take
// precedence over Retry-policy ones so that the scan stops at once. A
// validator without conditions accepts everything.
func (v *Validator) Validate(values []any) error {
	if v.Len() == 0 {
		return nil
	}
	if len(values) != len(v.conditions) {
		return &domain.ConditionError{
			Channel:  "conditions",
			Expected: fmt.Sprintf("%d values", len(v.conditions)),
			Actual:   fmt.Sprintf("%d values", len(values)),
			Policy:   domain.PolicyAbort,
		}
	}

	var retry *domain.ConditionError
	for i, c := range v.conditions {
		if Match(c.Expected, values[i], c.Tolerance) {
			continue
		}
		failure := &domain.ConditionError{
			Channel:   c.ID,
			Expected:  c.Expected,
			Actual:    values[i],
			Tolerance: effectiveTolerance(c.Tolerance),
			Policy:    c.Policy,
		}
		if c.Policy == domain.PolicyAbort {
			return failure
		}
		if retry == nil {
			retry = failure
		}
	}
	if retry != nil {
		return retry
	}
	return nil
}

// Match reports whether actual satisfies expected. Strings must be equal,
// numbers must lie within tolerance and a slice of expectations accepts any
// of its members.
func Match(expected, actual any, tolerance float64) bool {
	if list, ok := asList(expected); ok {
		for _, e := range list {
			if Match(e, actual, tolerance) {
				return true
			}
		}
		return false
	}

	if es, ok := expected.(string); ok {
		as, ok := actual.(string)
		return ok && es == as
	}

	ef, eok := toFloat(expected)
	af, aok := toFloat(actual)
	if eok && aok {
		return math.Abs(af-ef) <= effectiveTolerance(tolerance)
	}
	return reflect.DeepEqual(expected, actual)
}

// IsRetry reports whether err is a condition failure that may be retried.
func IsRetry(err error) bool {
	var ce *domain.ConditionError
	return errors.As(err, &ce) && ce.Policy == domain.PolicyRetry
}

// IsAbort reports whether err is a condition failure that aborts the scan.
func IsAbort(err error) bool {
	return errors.Is(err, domain.ErrConditionAbort)
}

func effectiveTolerance(t float64) float64 {
	return math.Max(t, MinTolerance)
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case string, []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
