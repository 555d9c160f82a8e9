package docintel

import "errors"

var (
	// ErrMissingOperation is returned when a submission is accepted without
	// an Operation-Location header.
	ErrMissingOperation = errors.New("analyze response missing Operation-Location")

	// ErrAnalysisFailed is returned when the service reports a failed operation.
	ErrAnalysisFailed = errors.New("document analysis failed")

	// ErrInvalidCredential is returned for credentials without endpoint or key.
	ErrInvalidCredential = errors.New("endpoint and key are required")
)
