package inference

import "fmt"

// AuthError means no credential was configured. It is returned before any
// network I/O happens.
type AuthError struct{}

func (*AuthError) Error() string {
	return "no API key configured"
}

type InferenceError struct {
	Status  int // 0 when the request never got a response
	Message string
}

func (e *InferenceError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("inference: %s", e.Message)
	}
	return fmt.Sprintf("inference (status %d): %s", e.Status, e.Message)
}
