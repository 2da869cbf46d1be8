// Package errs holds the typed errors shared by the services and the
// HTTP layer. Callers match with errors.As to decide between "no
// attempt possible" (configuration) and "attempt failed" (service,
// protocol).
package errs

import "fmt"

// ConfigError reports a missing required secret or endpoint. It is
// returned before any network I/O is attempted.
type ConfigError struct {
	Missing string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing configuration: %s", e.Missing)
}

// ServiceError reports a non-success response from an external
// service, carrying the provider's status and raw body.
type ServiceError struct {
	Service string
	Status  int
	Body    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d body=%q", e.Service, e.Status, e.Body)
}

// ProtocolError reports a response that arrived but did not have the
// expected shape (unparseable JSON, missing required field).
type ProtocolError struct {
	Service string
	Detail  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: malformed response: %s", e.Service, e.Detail)
}

// NotFoundError reports that an entity id matched nothing.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ValidationError reports malformed input to a CRUD path.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}
