package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreSetGetAndOverwrite(t *testing.T) {
	s := &Store{Name: "github"}
	s.Set("token", "abc")
	v, ok := s.Get("token")
	require.True(t, ok)
	require.Equal(t, "abc", v)

	s.Set("token", "def")
	v, ok = s.Get("token")
	require.True(t, ok)
	require.Equal(t, "def", v)
	require.Len(t, s.Fields, 1)
}

func TestStoreAsMap(t *testing.T) {
	s := &Store{Name: "github"}
	s.Set("token", "abc")
	s.Set("user", "alice")

	m := s.AsMap()
	require.Equal(t, map[string]string{"token": "abc", "user": "alice"}, m)
}

func TestStoreGetMissingField(t *testing.T) {
	s := &Store{Name: "github"}
	_, ok := s.Get("missing")
	require.False(t, ok)
}
