// Package errors defines the pipeline's failure kinds. Every skipped record or
// edge is reported as a PipelineError carrying the resource type and external id.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
)

// Kind sentinels. Use errors.Is(err, ErrMissingRequiredField) to test for a kind.
var (
	ErrUnknownResourceType          = errors.New("unknown resource type")
	ErrMissingRequiredField         = errors.New("missing required field")
	ErrRelatedReferenceUnresolvable = errors.New("related reference unresolvable")
	ErrStoreUnavailable             = errors.New("store unavailable")
	ErrNotFound                     = errors.New("not found")
)

type PipelineError struct {
	Kind         error
	ResourceType string
	ExternalID   int64
	Reason       string
	Err          error
}

func New(kind error, resourceType string, externalID int64, reason string) *PipelineError {
	return &PipelineError{Kind: kind, ResourceType: resourceType, ExternalID: externalID, Reason: reason}
}

func Newf(kind error, resourceType string, externalID int64, format string, args ...any) *PipelineError {
	return New(kind, resourceType, externalID, fmt.Sprintf(format, args...))
}

// Wrap attaches a kind to a collaborator error.
func Wrap(kind error, err error, resourceType string, externalID int64, reason string) *PipelineError {
	return &PipelineError{Kind: kind, ResourceType: resourceType, ExternalID: externalID, Reason: reason, Err: err}
}

func (e *PipelineError) Error() string {
	path := []string{}
	if e.ResourceType != "" {
		path = append(path, fmt.Sprintf("resource '%s'", e.ResourceType))
	}
	if e.ExternalID != 0 {
		path = append(path, fmt.Sprintf("id %d", e.ExternalID))
	}

	msg := e.Kind.Error()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if len(path) == 0 {
		return msg
	}
	return strings.Join(path, " -> ") + ": " + msg
}

func (e *PipelineError) Is(target error) bool {
	return target == e.Kind
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// LogFields returns the fields every skip log entry carries.
func (e *PipelineError) LogFields() map[string]any {
	return map[string]any{
		"resource_type": e.ResourceType,
		"external_id":   e.ExternalID,
		"reason":        e.Reason,
		"kind":          e.Kind.Error(),
	}
}

func IsPipelineError(err error) bool {
	var pe *PipelineError
	return errors.As(err, &pe)
}

func AsPipelineError(err error) (*PipelineError, bool) {
	var pe *PipelineError
	ok := errors.As(err, &pe)
	return pe, ok
}

// Skippable reports whether err only invalidates the current record, so a run may continue.
func Skippable(err error) bool {
	return errors.Is(err, ErrMissingRequiredField) ||
		errors.Is(err, ErrRelatedReferenceUnresolvable) ||
		errors.Is(err, ErrNotFound)
}

func statusCode(kind error) int {
	switch kind {
	case ErrUnknownResourceType, ErrNotFound:
		return http.StatusNotFound
	case ErrMissingRequiredField, ErrRelatedReferenceUnresolvable:
		return http.StatusUnprocessableEntity
	case ErrStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func ToHTTPError(err error) *httperror.HTTPError {
	pe, ok := AsPipelineError(err)
	if !ok {
		return httperror.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return httperror.NewHTTPError(statusCode(pe.Kind), pe.Error()).
		AddMetaValue("resource_type", pe.ResourceType).
		AddMetaValue("external_id", pe.ExternalID).
		AddMetaValue("reason", pe.Reason)
}
