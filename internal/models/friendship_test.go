package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureCanonicalOrder(t *testing.T) {
	t.Run("swaps when out of order", func(t *testing.T) {
		f := &Friendship{UserID1: 9, UserID2: 3}
		f.EnsureCanonicalOrder()
		assert.Equal(t, uint(3), f.UserID1)
		assert.Equal(t, uint(9), f.UserID2)
	})

	t.Run("keeps an already canonical pair", func(t *testing.T) {
		f := &Friendship{UserID1: 3, UserID2: 9}
		f.EnsureCanonicalOrder()
		assert.Equal(t, uint(3), f.UserID1)
		assert.Equal(t, uint(9), f.UserID2)
	})
}

func TestOtherUserID(t *testing.T) {
	f := &Friendship{UserID1: 3, UserID2: 9}
	assert.Equal(t, uint(9), f.OtherUserID(3))
	assert.Equal(t, uint(3), f.OtherUserID(9))
	assert.Equal(t, uint(0), f.OtherUserID(5))
}
