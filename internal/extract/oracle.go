// Package extract defines the extraction oracle: the black-box that
// proposes raw requirement candidates from loan document text.
package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/loanguard/loanguard/internal/normalizer"
)

// Result is one chunk's worth of oracle output.
type Result struct {
	LoanInfo   normalizer.RawLoanInfo    `json:"loan_info"`
	Candidates []normalizer.RawCandidate `json:"requirements"`
}

// Oracle proposes raw requirement candidates from a chunk of document text.
type Oracle interface {
	Extract(ctx context.Context, chunk string) (*Result, error)
}

// OracleError wraps an oracle failure and records whether it is transient
// (timeouts, rate limits, server errors: safe to retry) or fatal
// (malformed credentials, bad requests: retrying cannot help).
type OracleError struct {
	Transient bool
	Err       error
}

func (e *OracleError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("oracle %s error: %v", kind, e.Err)
}

func (e *OracleError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable oracle failure.
func IsTransient(err error) bool {
	var oe *OracleError
	return errors.As(err, &oe) && oe.Transient
}
