package salesforce

import "fmt"

// AuthError means no usable credential strategy produced a token. It is fatal
// to the current operation; health reporting surfaces it as "not connected".
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "salesforce auth: " + e.Reason
}

// RemoteError is a non-2xx response from Salesforce after the single
// invalidate-and-retry cycle on 401.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}
