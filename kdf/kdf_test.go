package kdf

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewThenFromSeedReproducesSamePack(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	sign := func(data []byte) ([]byte, error) {
		return ed25519.Sign(priv, data), nil
	}

	pack, seed, err := New(sign)
	require.NoError(t, err)
	require.Len(t, seed, SeedSize)

	reproduced, err := FromSeed(sign, seed)
	require.NoError(t, err)
	require.Equal(t, pack.WrapKey, reproduced.WrapKey)
	require.Equal(t, pack.IV, reproduced.IV)
}

func TestFromSeedRejectsBadSeedLength(t *testing.T) {
	sign := func(data []byte) ([]byte, error) { return data, nil }
	_, err := FromSeed(sign, []byte("too-short"))
	require.Error(t, err)
}

func TestDifferentSeedsProduceDifferentPacks(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sign := func(data []byte) ([]byte, error) { return ed25519.Sign(priv, data), nil }

	_, seedA, err := New(sign)
	require.NoError(t, err)
	_, seedB, err := New(sign)
	require.NoError(t, err)
	require.NotEqual(t, seedA, seedB)

	packA, err := FromSeed(sign, seedA)
	require.NoError(t, err)
	packB, err := FromSeed(sign, seedB)
	require.NoError(t, err)
	require.NotEqual(t, packA.WrapKey, packB.WrapKey)
}

func TestZeroClearsPack(t *testing.T) {
	pack := &Pack{}
	for i := range pack.WrapKey {
		pack.WrapKey[i] = 0xAA
	}
	pack.Zero()
	var zero [32]byte
	require.Equal(t, zero, pack.WrapKey)
}
