package recon

import (
	"errors"
	"fmt"

	"github.com/cleared-dev/recon/internal/model"
)

// Sentinel errors for errors.Is checks.
var (
	ErrInvalidRecord  = errors.New("invalid record")
	ErrDuplicateMatch = errors.New("duplicate match")
	ErrConfiguration  = errors.New("invalid configuration")
)

// InvalidRecordError reports an input record that breaks the normalized-record contract.
// A run that sees one aborts before any matching.
type InvalidRecordError struct {
	Source model.Source
	Index  int // position in the input slice, -1 if unknown
	ID     string
	Field  string
	Reason string
	Err    error
}

func (e *InvalidRecordError) Error() string {
	where := fmt.Sprintf("%s record", e.Source)
	if e.ID != "" {
		where += fmt.Sprintf(" %q", e.ID)
	}
	if e.Index >= 0 {
		where += fmt.Sprintf(" (row %d)", e.Index+1)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", where, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", where, e.Reason)
}

// Unwrap implements errors.Unwrap.
func (e *InvalidRecordError) Unwrap() error { return e.Err }

// Is implements errors.Is support.
func (e *InvalidRecordError) Is(target error) bool { return target == ErrInvalidRecord }

// DuplicateMatchError reports an attempt to match an id that is already matched.
// It indicates a defect in the engine, not bad data.
type DuplicateMatchError struct {
	LedgerID string
	BankID   string
	Side     model.Source // side whose id was already taken
	Existing string       // counterpart of the earlier match
}

func (e *DuplicateMatchError) Error() string {
	taken := e.LedgerID
	if e.Side == model.SourceBank {
		taken = e.BankID
	}
	return fmt.Sprintf("%s id %q already matched to %q (ledger %q, bank %q)", e.Side, taken, e.Existing, e.LedgerID, e.BankID)
}

// Is implements errors.Is support.
func (e *DuplicateMatchError) Is(target error) bool { return target == ErrDuplicateMatch }

// ConfigurationError reports an option outside its valid range.
type ConfigurationError struct {
	Option string
	Value  any
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Option != "" {
		return fmt.Sprintf("configuration option %s=%v: %s", e.Option, e.Value, e.Reason)
	}
	return fmt.Sprintf("configuration: %s", e.Reason)
}

// Unwrap implements errors.Unwrap.
func (e *ConfigurationError) Unwrap() error { return e.Err }

// Is implements errors.Is support.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }
