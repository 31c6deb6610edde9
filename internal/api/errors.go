package api

import "fmt"

// RejectionError is a server-side refusal of an otherwise well-formed
// request. The transport worked; the server said no and explained why.
type RejectionError struct {
	// Op names the rejected operation, for example "task submission".
	Op string

	// Reason is the server-provided message, possibly empty.
	Reason string
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	if e.Reason == "" {
		return e.Op + " rejected"
	}
	return fmt.Sprintf("%s rejected: %s", e.Op, e.Reason)
}
