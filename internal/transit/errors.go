package transit

import (
	"errors"
	"fmt"
)

// Kind classifies why a fetch failed. Every kind is recoverable: the fetch
// loop keeps the previous snapshot and tries again next cycle.
type Kind int

const (
	// KindTransport covers DNS, connection, TLS and timeout failures.
	KindTransport Kind = iota + 1
	// KindHTTP is a non-2xx response status.
	KindHTTP
	// KindDecode is a body that is not the expected JSON document.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindHTTP:
		return "http"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// FetchError is returned by Client.FetchArrivals.
type FetchError struct {
	Kind   Kind
	Status int // set for KindHTTP
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindHTTP:
		if e.Err != nil {
			return fmt.Sprintf("http status %d: %v", e.Status, e.Err)
		}
		return fmt.Sprintf("http status %d", e.Status)
	default:
		if e.Err == nil {
			return e.Kind.String()
		}
		return e.Kind.String() + ": " + e.Err.Error()
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a FetchError of the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == kind
}
