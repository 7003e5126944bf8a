package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep the suite fast; the encoding is identical.
func testHasher() *Argon2idHasher {
	return NewArgon2idHasher(Params{MemoryKiB: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
}

func TestHashAndVerify(t *testing.T) {
	h := testHasher()

	digest, err := h.Hash("pw12345678")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$argon2id$v=19$m=64,t=1,p=1$"), digest)

	ok, err := h.Verify(digest, "pw12345678")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(digest, "wrong-password")
	require.NoError(t, err, "mismatch must not be an error")
	assert.False(t, ok)
}

func TestHash_IsSalted(t *testing.T) {
	h := testHasher()

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestVerify_MalformedDigest(t *testing.T) {
	h := testHasher()

	tests := []struct {
		name   string
		digest string
	}{
		{name: "empty", digest: ""},
		{name: "bcrypt", digest: "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"},
		{name: "wrong version", digest: "$argon2id$v=16$m=64,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5"},
		{name: "bad params", digest: "$argon2id$v=19$m=x,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5"},
		{name: "bad salt", digest: "$argon2id$v=19$m=64,t=1,p=1$!!!$a2V5a2V5a2V5a2V5a2V5a2V5"},
		{name: "too expensive", digest: "$argon2id$v=19$m=1048576,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := h.Verify(tt.digest, "pw")
			assert.ErrorIs(t, err, ErrInvalidHash)
			assert.False(t, ok)
		})
	}
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, uint32(64*1024), p.MemoryKiB)
	assert.Equal(t, uint32(3), p.Iterations)
	assert.Equal(t, uint8(4), p.Parallelism)
}

func TestTokenParams_CheaperThanDefault(t *testing.T) {
	tp, dp := TokenParams(), DefaultParams()
	assert.Less(t, tp.MemoryKiB, dp.MemoryKiB)
	assert.Equal(t, dp.KeyLength, tp.KeyLength)
}
