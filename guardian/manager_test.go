package guardian

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mxczfr/secret-store/internal/sqlitedb"
)

func TestCreateGuardianThenOpenRecoversDataKey(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	defer db.Close()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	dataKey := make([]byte, 32)
	_, err = rand.Read(dataKey)
	require.NoError(t, err)

	mgr := NewManager(NewDAO())
	require.NoError(t, mgr.CreateGuardian(ctx, db, "my-store", "fp1", &priv.PublicKey, dataKey))

	opened, err := mgr.Open(ctx, db, "my-store", "fp1", priv)
	require.NoError(t, err)
	require.Equal(t, dataKey, opened)
}

func TestOpenWithWrongIdentityFails(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	defer db.Close()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	other, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	dataKey := make([]byte, 32)
	_, err = rand.Read(dataKey)
	require.NoError(t, err)

	mgr := NewManager(NewDAO())
	require.NoError(t, mgr.CreateGuardian(ctx, db, "my-store", "fp1", &priv.PublicKey, dataKey))

	_, err = mgr.Open(ctx, db, "my-store", "fp1", other)
	require.Error(t, err)
}

func TestFindStoreNamesAndDelete(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	defer db.Close()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	dataKey := make([]byte, 32)
	_, err = rand.Read(dataKey)
	require.NoError(t, err)

	mgr := NewManager(NewDAO())
	require.NoError(t, mgr.CreateGuardian(ctx, db, "store-a", "fp1", &priv.PublicKey, dataKey))
	require.NoError(t, mgr.CreateGuardian(ctx, db, "store-b", "fp1", &priv.PublicKey, dataKey))

	names, err := mgr.FindStoreNames(ctx, db, []string{"fp1"})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"store-a", "store-b"}, names)

	require.NoError(t, mgr.DeleteStoreGuardians(ctx, db, "store-a"))

	names, err = mgr.FindStoreNames(ctx, db, []string{"fp1"})
	require.NoError(t, err)
	require.Equal(t, []string{"store-b"}, names)
}

func TestCreateGuardianDuplicateFails(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	defer db.Close()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	dataKey := make([]byte, 32)
	_, err = rand.Read(dataKey)
	require.NoError(t, err)

	mgr := NewManager(NewDAO())
	require.NoError(t, mgr.CreateGuardian(ctx, db, "store-a", "fp1", &priv.PublicKey, dataKey))
	err = mgr.CreateGuardian(ctx, db, "store-a", "fp1", &priv.PublicKey, dataKey)
	require.ErrorIs(t, err, ErrDuplicate)
}
