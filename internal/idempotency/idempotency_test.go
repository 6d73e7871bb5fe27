package idempotency

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-newsletter/svc/internal/models"
)

func TestValidateKey(t *testing.T) {
	t.Run("empty key rejected", func(t *testing.T) {
		assert.Error(t, ValidateKey(""))
	})

	t.Run("too long key rejected", func(t *testing.T) {
		long := make([]byte, 65)
		for i := range long {
			long[i] = 'a'
		}
		assert.Error(t, ValidateKey(string(long)))
	})

	t.Run("65-byte boundary accepted at 64", func(t *testing.T) {
		ok := make([]byte, 64)
		for i := range ok {
			ok[i] = 'a'
		}
		assert.NoError(t, ValidateKey(string(ok)))
	})

	t.Run("single character accepted", func(t *testing.T) {
		assert.NoError(t, ValidateKey("a"))
	})
}

func TestHeaderRoundTrip(t *testing.T) {
	pairs := []models.HeaderPair{
		{Name: "Location", Value: []byte("/admin/newsletters")},
		{Name: "Set-Cookie", Value: []byte("a=1")},
		{Name: "Set-Cookie", Value: []byte("b=2")}, // duplicate names must survive
	}

	raw, err := encodeHeaders(pairs)
	assert.NoError(t, err)

	got, err := decodeHeaders(raw)
	assert.NoError(t, err)
	assert.Equal(t, pairs, got)
}

func TestDecodeHeadersEmpty(t *testing.T) {
	got, err := decodeHeaders(nil)
	assert.NoError(t, err)
	assert.Nil(t, got)
}
