// Package kind enumerates the error kinds of spec §7 so handlers can branch
// on cause instead of matching message strings, the way hyperpb's errCode
// lets callers use errors.Is against a small fixed set of parse errors
// (see error.go in the teacher package).
package kind

import "fmt"

// Kind is one of the eight error kinds a request handler can fail with.
type Kind int

const (
	// PathMalformed: the listing URI does not fit the
	// <dir>/.vscode.<birname>/<isa>/<birname>.view layout.
	PathMalformed Kind = iota + 1
	// BIRLoadFailure: the BIR file is missing or fails to decode.
	BIRLoadFailure
	// IndexStale: the on-disk index failed to parse or no longer matches
	// the open listing; recovered locally by rebuilding.
	IndexStale
	// NotCached: a request named a URI with no open session.
	NotCached
	// TokenResolution: no token at cursor, unknown symbol, proxy
	// referent, or no address.
	TokenResolution
	// AssemblerFailure: the rewrite batch was rejected by the assembler.
	AssemblerFailure
	// RemoteIO: the client did not honor a custom request (getBirFile/
	// pushBirFile).
	RemoteIO
	// AddressOutOfRange: no block covers a requested address.
	AddressOutOfRange
)

func (k Kind) String() string {
	switch k {
	case PathMalformed:
		return "path malformed"
	case BIRLoadFailure:
		return "BIR load failure"
	case IndexStale:
		return "index stale or unreadable"
	case NotCached:
		return "document not cached"
	case TokenResolution:
		return "token resolution failure"
	case AssemblerFailure:
		return "assembler failure"
	case RemoteIO:
		return "remote I/O failure"
	case AddressOutOfRange:
		return "address out of range"
	default:
		return "unknown error kind"
	}
}

// Error pairs a Kind with the underlying cause. Use errors.As to recover the
// Kind from an error chain, and Is to compare against a raw Kind value.
type Error struct {
	Kind  Kind
	Cause error
}

func New(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Cause: fmt.Errorf(format, args...)}
}

func Wrap(k Kind, cause error) *Error {
	return &Error{Kind: k, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, &Error{Kind: K}) match any *Error of the same Kind,
// regardless of Cause.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Kind == e.Kind
}
