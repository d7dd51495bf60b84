package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mxczfr/secret-store/internal/sqlitedb"
)

func TestDAOSaveFindUpdateDelete(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	defer db.Close()

	dao := NewDAO()
	s := EncryptedStore{Name: "github", Ciphertext: []byte("ct"), Nonce: []byte("noncenon")}
	require.NoError(t, dao.Save(ctx, db, s))

	found, err := dao.Find(ctx, db, "github")
	require.NoError(t, err)
	require.Equal(t, s, found)

	_, err = dao.Find(ctx, db, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	updated := EncryptedStore{Name: "github", Ciphertext: []byte("new-ct"), Nonce: []byte("newnonce")}
	require.NoError(t, dao.Update(ctx, db, updated))
	found, err = dao.Find(ctx, db, "github")
	require.NoError(t, err)
	require.Equal(t, updated, found)

	require.NoError(t, dao.Delete(ctx, db, "github"))
	_, err = dao.Find(ctx, db, "github")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDAOSaveDuplicateFails(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	defer db.Close()

	dao := NewDAO()
	s := EncryptedStore{Name: "github", Ciphertext: []byte("ct"), Nonce: []byte("noncenon")}
	require.NoError(t, dao.Save(ctx, db, s))
	err = dao.Save(ctx, db, s)
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestDAOUpdateMissingFails(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	defer db.Close()

	dao := NewDAO()
	err = dao.Update(ctx, db, EncryptedStore{Name: "missing", Ciphertext: []byte("x"), Nonce: []byte("xxxxxxxx")})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDAOListNames(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	defer db.Close()

	dao := NewDAO()
	require.NoError(t, dao.Save(ctx, db, EncryptedStore{Name: "b", Ciphertext: []byte("x"), Nonce: []byte("xxxxxxxx")}))
	require.NoError(t, dao.Save(ctx, db, EncryptedStore{Name: "a", Ciphertext: []byte("x"), Nonce: []byte("xxxxxxxx")}))

	names, err := dao.ListNames(ctx, db)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, names)
}
