package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.True(t, CheckPasswordHash("s3cret!", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("abc"), ErrPasswordTooShort)
	assert.NoError(t, ValidatePassword("abcdef"))
}

func TestRandomCode(t *testing.T) {
	code := RandomCode(8)
	assert.Len(t, code, 8)
	for _, r := range code {
		assert.True(t, strings.ContainsRune(codeAlphabet, r))
	}
	assert.NotEqual(t, RandomCode(12), RandomCode(12))
}

func TestRandomRoomNumber(t *testing.T) {
	for i := 0; i < 50; i++ {
		n := RandomRoomNumber()
		assert.NotZero(t, n)
		assert.LessOrEqual(t, n, uint32(0x7fffffff))
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", TruncateRunes("abc", 5))
	assert.Equal(t, "ab", TruncateRunes("abc", 2))
	assert.Equal(t, "门铃", TruncateRunes("门铃离线", 2))
	assert.Equal(t, "", TruncateRunes("abc", 0))

	long := strings.Repeat("设", 300)
	cut := TruncateRunes(long, 255)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, 255, utf8.RuneCountInString(cut))
}
