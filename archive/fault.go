package archive

import (
	"errors"
	"fmt"
)

// Kind distinguishes the causes a Fault can have.
type Kind int

const (
	// KindAbsent means nothing is stored under the key.
	KindAbsent Kind = iota
	// KindCorrupt means stored bytes exist but could not be decoded.
	KindCorrupt
	// KindIO means the backend itself failed (permissions, network, disk).
	KindIO
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindCorrupt:
		return "corrupt"
	case KindIO:
		return "io"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Operation names used in faults.
const (
	OpGet    = "get"
	OpSet    = "set"
	OpDelete = "delete"
	OpClear  = "clear"
	OpKeys   = "keys"
	OpCopy   = "copy"
)

// Fault describes a storage failure. Faults raised by reads match
// ErrNotFound so that every read fault degrades to a miss; faults raised by
// writes do not.
type Fault struct {
	Op   string
	Key  string
	Kind Kind
	Err  error
}

// Miss returns a read fault for key.
func Miss(key string, kind Kind, err error) *Fault {
	return &Fault{Op: OpGet, Key: key, Kind: kind, Err: err}
}

// WriteFault returns a fault for a failed mutation.
func WriteFault(op, key string, err error) *Fault {
	return &Fault{Op: op, Key: key, Kind: KindIO, Err: err}
}

// Error describes the failed operation.
func (f *Fault) Error() string {
	msg := fmt.Sprintf("archive: %s %q: %s", f.Op, f.Key, f.Kind)
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (f *Fault) Unwrap() error {
	return f.Err
}

// Is makes read faults match ErrNotFound.
func (f *Fault) Is(target error) bool {
	return target == ErrNotFound && f.Op == OpGet
}

// FaultKind returns the kind of the first Fault in err's chain.
// Errors that carry no Fault are classified as KindIO, and nil as KindAbsent.
func FaultKind(err error) Kind {
	if err == nil {
		return KindAbsent
	}
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindIO
}
