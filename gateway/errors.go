// ABOUTME: Error taxonomy for remote generation service calls with per-service-id context.
// ABOUTME: Defines unreachable, invalid-response, and resource-resolution error types with retryability.
package gateway

import "fmt"

// RetryableError is implemented by gateway errors that may succeed on a
// subsequent attempt. Only transport-level failures are retryable; a
// malformed response will stay malformed.
type RetryableError interface {
	error
	IsRetryable() bool
}

// ServiceUnreachableError indicates a network failure or timeout while
// talking to a remote service (manifest fetch, schema fetch, or execute).
type ServiceUnreachableError struct {
	ServiceID string
	Endpoint  string
	Cause     error
}

func (e *ServiceUnreachableError) Error() string {
	return fmt.Sprintf("service %s unreachable at %s: %v", e.ServiceID, e.Endpoint, e.Cause)
}

func (e *ServiceUnreachableError) Unwrap() error { return e.Cause }

// IsRetryable reports true: transport failures are the one class the
// optional retry policy is allowed to retry.
func (e *ServiceUnreachableError) IsRetryable() bool { return true }

// InvalidResponseError indicates the remote service answered, but with a
// malformed body or a missing result field.
type InvalidResponseError struct {
	ServiceID string
	Reason    string
	Cause     error
}

func (e *InvalidResponseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("service %s returned invalid response: %s: %v", e.ServiceID, e.Reason, e.Cause)
	}
	return fmt.Sprintf("service %s returned invalid response: %s", e.ServiceID, e.Reason)
}

func (e *InvalidResponseError) Unwrap() error { return e.Cause }

func (e *InvalidResponseError) IsRetryable() bool { return false }

// ResourceResolutionFailedError indicates the service returned a resource
// reference but the follow-up fetch for the referenced bytes failed.
type ResourceResolutionFailedError struct {
	ServiceID  string
	ResourceID string
	Cause      error
}

func (e *ResourceResolutionFailedError) Error() string {
	return fmt.Sprintf("service %s: resolving resource %s: %v", e.ServiceID, e.ResourceID, e.Cause)
}

func (e *ResourceResolutionFailedError) Unwrap() error { return e.Cause }

func (e *ResourceResolutionFailedError) IsRetryable() bool { return false }

// SchemaViolationError indicates the request parameters failed validation
// against the service's discovered input schema before any network call.
type SchemaViolationError struct {
	ServiceID string
	Missing   []string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("service %s: request missing required parameters %v", e.ServiceID, e.Missing)
}

func (e *SchemaViolationError) IsRetryable() bool { return false }
