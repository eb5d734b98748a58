package flags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlags(t *testing.T) {
	const (
		a uint8 = 1 << iota
		b
		c
	)

	f := Add(uint8(0), a, c)
	assert.True(t, Has(f, a))
	assert.True(t, Has(f, a|c))
	assert.False(t, Has(f, a|b))
	assert.True(t, Any(f, a|b))
	assert.False(t, Any(f, b))

	f = Remove(f, a)
	assert.False(t, Has(f, a))
	assert.True(t, Has(f, c))
}
