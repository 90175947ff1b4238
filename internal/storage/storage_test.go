package storage

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDecodeCorruptedKeepsDefault(t *testing.T) {
	dst := []string{"default"}
	require.NoError(t, Decode(discardLogger(), "x", []byte(`{"not": "a list"}`), &dst))
	require.Equal(t, []string{"default"}, dst)
}

func TestDecodeEmptyAndNull(t *testing.T) {
	dst := map[string]int{"a": 1}
	require.NoError(t, Decode(discardLogger(), "x", nil, &dst))
	require.NoError(t, Decode(discardLogger(), "x", []byte("null\n"), &dst))
	require.Equal(t, map[string]int{"a": 1}, dst)
}

func TestDecodeRejectsNonPointer(t *testing.T) {
	var dst []string
	require.Error(t, Decode(discardLogger(), "x", []byte(`[]`), dst))
}

func TestEncodeKeepsUnicode(t *testing.T) {
	b, err := Encode(map[string]string{"text": "Отличный сервис <3 & спасибо"})
	require.NoError(t, err)
	require.Equal(t, "{\n  \"text\": \"Отличный сервис <3 & спасибо\"\n}\n", string(b))
}
