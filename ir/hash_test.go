package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigest_MatchesDomainSeparatedHash(t *testing.T) {
	node := NewMapping(E("b", Int(2)), E("a", Int(1)))

	got, err := Digest(node)
	require.NoError(t, err)

	sum := sha256.Sum256(append([]byte(DomainDocument+"\x00"), `{"a":1,"b":2}`...))
	assert.Equal(t, hex.EncodeToString(sum[:]), got)
}

func TestDigest_IgnoresInsertionOrderAndLexicalNumberForm(t *testing.T) {
	a := NewMapping(E("x", Number("1.0")), E("y", String("e\u0301")))
	b := NewMapping(E("y", String("\u00e9")), E("x", Number("1")))

	da, err := Digest(a)
	require.NoError(t, err)
	db, err := Digest(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
	assert.Len(t, da, 64)
}

func TestDigest_DiffersOnContent(t *testing.T) {
	da, err := Digest(NewMapping(E("x", Int(1))))
	require.NoError(t, err)
	db, err := Digest(NewMapping(E("x", Int(2))))
	require.NoError(t, err)
	assert.NotEqual(t, da, db)
}

func TestDigest_Error(t *testing.T) {
	_, err := Digest(Number("not-a-number"))
	assert.ErrorContains(t, err, "Digest")
}
