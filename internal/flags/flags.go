// Package flags holds helpers for bit sets such as the editor's changed fields.
package flags

import (
	"golang.org/x/exp/constraints"
)

func Add[T constraints.Unsigned](f T, bits ...T) T {
	for _, bit := range bits {
		f |= bit
	}
	return f
}

func Remove[T constraints.Unsigned](f T, bit T) T {
	return f &^ bit
}

// Has reports whether every bit of bit is set in f.
func Has[T constraints.Unsigned](f T, bit T) bool {
	return f&bit == bit
}

// Any reports whether at least one bit of bit is set in f.
func Any[T constraints.Unsigned](f T, bit T) bool {
	return f&bit != 0
}
