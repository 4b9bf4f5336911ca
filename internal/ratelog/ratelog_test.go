package ratelog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_AllowsUpToMaxPerWindow(t *testing.T) {
	l := New(time.Minute, 2)

	assert.True(t, l.Allow("category-a"))
	assert.True(t, l.Allow("category-a"))
	assert.False(t, l.Allow("category-a"))
}

func TestLimiter_CategoriesAreIndependent(t *testing.T) {
	l := New(time.Minute, 1)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
	assert.False(t, l.Allow("a"))
}

func TestLimiter_NilIsPermissive(t *testing.T) {
	var l *Limiter
	assert.True(t, l.Allow("anything"))
}
