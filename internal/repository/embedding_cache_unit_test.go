package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashKey(t *testing.T) {
	assert.Len(t, hashKey("add dark mode"), 64)
	assert.Equal(t, hashKey("add dark mode"), hashKey("add dark mode"))
	assert.NotEqual(t, hashKey("add dark mode"), hashKey("add dark mode "))
}
