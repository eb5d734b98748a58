package query

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Key identifies a cached result by its full dependency tuple,
// e.g. {"notionProperties", integrationID, databaseID}.
type Key []string

func NewKey(parts ...string) Key {
	return Key(parts)
}

// Ready reports whether every part of the key is set. Queries whose key is not
// ready are never dispatched.
func (k Key) Ready() bool {
	if len(k) == 0 {
		return false
	}
	for _, part := range k {
		if part == "" {
			return false
		}
	}
	return true
}

func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	return k[:len(prefix)].Equal(prefix)
}

func (k Key) Hash() uint64 {
	d := xxhash.New()
	for _, part := range k {
		_, _ = d.WriteString(part)
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}

func (k Key) String() string {
	return "[" + strings.Join(k, ", ") + "]"
}
