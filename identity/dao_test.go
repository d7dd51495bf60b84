package identity

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mxczfr/secret-store/internal/sqlitedb"
)

func TestDAOSaveAndFindByFingerprint(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	defer db.Close()

	dao := NewDAO()
	raw := RawIdentity{Fingerprint: "SHA256:abc", PublicKey: []byte("pub"), PrivateKey: []byte("priv")}
	require.NoError(t, dao.Save(ctx, db, raw))

	found, err := dao.FindByFingerprint(ctx, db, "SHA256:abc")
	require.NoError(t, err)
	require.Equal(t, raw, found)

	_, err = dao.FindByFingerprint(ctx, db, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDAOSavePublicOnlyIdentity(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	defer db.Close()

	dao := NewDAO()
	raw := RawIdentity{Fingerprint: "SHA256:pubonly", PublicKey: []byte("pub")}
	require.NoError(t, dao.Save(ctx, db, raw))

	found, err := dao.FindByFingerprint(ctx, db, "SHA256:pubonly")
	require.NoError(t, err)
	require.Nil(t, found.PrivateKey)
}

func TestDAOSaveDuplicateFails(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	defer db.Close()

	dao := NewDAO()
	raw := RawIdentity{Fingerprint: "SHA256:abc", PublicKey: []byte("pub")}
	require.NoError(t, dao.Save(ctx, db, raw))
	err = dao.Save(ctx, db, raw)
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestDAOFindByFingerprintsFiltersUnknown(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	defer db.Close()

	dao := NewDAO()
	require.NoError(t, dao.Save(ctx, db, RawIdentity{Fingerprint: "a", PublicKey: []byte("1")}))
	require.NoError(t, dao.Save(ctx, db, RawIdentity{Fingerprint: "b", PublicKey: []byte("2")}))

	found, err := dao.FindByFingerprints(ctx, db, []string{"a", "missing"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "a", found[0].Fingerprint)
}

func TestDAOFindAll(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	defer db.Close()

	dao := NewDAO()
	require.NoError(t, dao.Save(ctx, db, RawIdentity{Fingerprint: "a", PublicKey: []byte("1")}))
	require.NoError(t, dao.Save(ctx, db, RawIdentity{Fingerprint: "b", PublicKey: []byte("2")}))

	all, err := dao.FindAll(ctx, db)
	require.NoError(t, err)
	require.Len(t, all, 2)
}
