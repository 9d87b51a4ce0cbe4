package flow

import (
	"strconv"

	"github.com/google/uuid"
)

// IDSource hands out node ids. The flow owns its source; ids already in
// use are skipped.
type IDSource interface {
	Next() string
}

// IDFunc adapts a function to [IDSource].
type IDFunc func() string

// Next calls f.
func (f IDFunc) Next() string { return f() }

// Sequence is the default id source: "1", "2", "3", ...
type Sequence struct {
	n int
}

// Next returns the next number in the sequence.
func (s *Sequence) Next() string {
	s.n++
	return strconv.Itoa(s.n)
}

// UUIDSource returns an id source producing random UUIDs, for flows whose
// nodes are created by several independent clients.
func UUIDSource() IDSource {
	return IDFunc(uuid.NewString)
}
