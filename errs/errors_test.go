package errs

import (
	"io"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializationError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *SerializationError
		want string
	}{
		{
			name: "code and message",
			err:  New(CodeTypeMismatch, "expected array, got %s", "string"),
			want: "TYPE_MISMATCH: expected array, got string",
		},
		{
			name: "with type and path",
			err:  New(CodeTypeMismatch, "expected array").WithType("[]int").WithPath("$.values"),
			want: "TYPE_MISMATCH: expected array (type=[]int, path=$.values)",
		},
		{
			name: "with cause",
			err:  Wrap(CodeMalformedDocument, io.ErrUnexpectedEOF, "parse json"),
			want: "MALFORMED_DOCUMENT: parse json: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIs_MatchesThroughWrapping(t *testing.T) {
	base := New(CodeFileNotFound, "no document %q", "save.json")
	wrapped := errors.Wrap(base, "read save")

	assert.True(t, Is(wrapped, CodeFileNotFound))
	assert.True(t, IsFileNotFound(wrapped))
	assert.False(t, Is(wrapped, CodeTypeMismatch))
	assert.Equal(t, CodeFileNotFound, CodeOf(wrapped))
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(io.EOF))
	assert.False(t, IsMalformedDocument(nil))
}

func TestUnwrap_ReachesCause(t *testing.T) {
	err := Wrap(CodeInvalidValue, io.ErrShortBuffer, "constructor failed")
	require.ErrorIs(t, err, io.ErrShortBuffer)

	se, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidValue, se.Code)
}

func TestIsKnownCode(t *testing.T) {
	assert.True(t, IsKnownCode(CodeFileNotFound))
	assert.True(t, IsKnownCode(CodeDepthExceeded))
	assert.False(t, IsKnownCode(""))
	assert.False(t, IsKnownCode("FILE_MISSING"))
}
