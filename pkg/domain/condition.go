package domain

import "fmt"

// Policy decides how the scanner reacts to a failed Condition.
type Policy string

const (
	// PolicyRetry discards the sample and re-acquires it, up to the retry limit.
	PolicyRetry Policy = "retry"
	// PolicyAbort terminates the scan immediately.
	PolicyAbort Policy = "abort"
)

// ParsePolicy maps configuration strings onto a Policy.
// The legacy monitor actions collapse onto the closed set: "wait" and
// "waitandabort" become PolicyRetry, since exhausting a retry aborts the scan.
func ParsePolicy(s string) (Policy, error) {
	switch normalizeKey(s) {
	case "retry", "wait", "waitandabort":
		return PolicyRetry, nil
	case "abort", "":
		return PolicyAbort, nil
	}
	return "", &ConfigurationError{Field: "policy", Reason: fmt.Sprintf("unknown condition policy %q", s)}
}

// Condition is a channel checked for validity after every acquisition.
type Condition struct {
	// ID identifies the monitored channel.
	ID string
	// Expected is a string, a number or a slice of acceptable values.
	Expected any
	// Tolerance is the maximum absolute deviation for numeric values.
	Tolerance float64
	Policy    Policy
}

func normalizeKey(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			b = append(b, c+('a'-'A'))
		case c == '_' || c == '-' || c == ' ':
		default:
			b = append(b, c)
		}
	}
	return string(b)
}
