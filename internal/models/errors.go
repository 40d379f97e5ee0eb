package models

import (
	"fmt"
	"strings"
)

// ErrorKind identifies the category of error that occurred.
type ErrorKind string

const (
	// Directory and file operations
	ErrIO ErrorKind = "io_error"

	// Receipt written before its task directory exists
	ErrPrecondition ErrorKind = "precondition_error"

	// Receipt content that cannot be parsed
	ErrCorruptReceipt ErrorKind = "corrupt_receipt"

	// External command wrote to stderr, exited non-zero or could not start
	ErrCommand ErrorKind = "command_error"

	// Catch-all for failures surfaced by a collection unit
	ErrUnit ErrorKind = "unit_error"
)

// IOError is returned when a directory or file operation fails.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s", e.Op, e.Path)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error   { return e.Err }
func (e *IOError) Kind() ErrorKind { return ErrIO }

// PreconditionError is returned when an operation is attempted before the
// state it depends on exists.
type PreconditionError struct {
	Path   string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed for %s: %s", e.Path, e.Reason)
}

func (e *PreconditionError) Kind() ErrorKind { return ErrPrecondition }

// CorruptReceiptError is returned when a receipt file cannot be parsed.
type CorruptReceiptError struct {
	Path string
	Err  error
}

func (e *CorruptReceiptError) Error() string {
	return fmt.Sprintf("corrupt receipt %s: %s", e.Path, e.Err)
}

func (e *CorruptReceiptError) Unwrap() error   { return e.Err }
func (e *CorruptReceiptError) Kind() ErrorKind { return ErrCorruptReceipt }

// CommandError is returned by command units. Stderr holds whatever the
// process wrote to standard error; ExitCode is -1 if it never exited.
type CommandError struct {
	Command  string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "command %q", e.Command)
	switch {
	case e.Err != nil:
		fmt.Fprintf(&b, " failed: %s", e.Err)
	case e.ExitCode != 0:
		fmt.Fprintf(&b, " exited with code %d", e.ExitCode)
	default:
		b.WriteString(" wrote to stderr")
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		fmt.Fprintf(&b, ": %s", stderr)
	}
	return b.String()
}

func (e *CommandError) Unwrap() error   { return e.Err }
func (e *CommandError) Kind() ErrorKind { return ErrCommand }

// UnitError wraps a failure raised by a collection unit.
type UnitError struct {
	Unit string
	Err  error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %s: %s", e.Unit, e.Err)
}

func (e *UnitError) Unwrap() error   { return e.Err }
func (e *UnitError) Kind() ErrorKind { return ErrUnit }
