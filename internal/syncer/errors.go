package syncer

import (
	"fmt"
	"strings"

	"github.com/openmined/solarsync/internal/tree"
)

// ValidationError reports a failed precondition. No transfer is attempted.
type ValidationError struct {
	Subject string
	Value   string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s %s", e.Subject, e.Value, e.Reason)
}

// TransferError is the failure of a single path during a sync.
type TransferError struct {
	Path   tree.PathKey
	Action Action
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Action, e.Path, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// TransferFailedError aggregates every per-path failure of one sync. Transfers that
// completed are kept; nothing is rolled back.
type TransferFailedError struct {
	Failures []*TransferError
}

func (e *TransferFailedError) Error() string {
	paths := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		paths = append(paths, f.Path.String())
	}
	return fmt.Sprintf("%d transfer(s) failed: %s", len(e.Failures), strings.Join(paths, ", "))
}

// Paths returns the failed paths in report order.
func (e *TransferFailedError) Paths() []tree.PathKey {
	paths := make([]tree.PathKey, 0, len(e.Failures))
	for _, f := range e.Failures {
		paths = append(paths, f.Path)
	}
	return paths
}

func (e *TransferFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}
