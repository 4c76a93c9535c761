package panel

import "fmt"

// ErrorKind classifies a panel API failure. Retry behavior is decided from
// the kind, not from matching error strings at call sites.
type ErrorKind int

const (
	KindGeneric ErrorKind = iota
	KindConnection
	KindAuth
	KindNotFound
	KindServer
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server"
	default:
		return "generic"
	}
}

// Retryable reports whether another attempt can succeed. Auth failures get
// their single re-authentication pass elsewhere; not-found never retries.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindConnection, KindServer, KindGeneric:
		return true
	default:
		return false
	}
}

type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("panel: %s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the classification from err, or KindGeneric for foreign
// errors.
func KindOf(err error) ErrorKind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindGeneric
}

func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

func IsAuth(err error) bool { return KindOf(err) == KindAuth }
