package identity

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh/agent"

	"github.com/mxczfr/secret-store/internal/sqlitedb"
	"github.com/mxczfr/secret-store/sshagent"
)

func newTestP256Key() ([]byte, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return x509.MarshalPKIXPublicKey(&priv.PublicKey)
}

func testAgent(t *testing.T) *sshagent.Agent {
	t.Helper()

	dir := t.TempDir()
	sock := filepath.Join(dir, "agent.sock")

	ln, err := net.Listen("unix", sock)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	keyring := agent.NewKeyring()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	require.NoError(t, keyring.Add(agent.AddedKey{PrivateKey: priv, Comment: "test-key"}))

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go agent.ServeAgent(keyring, conn)
		}
	}()

	t.Setenv("SSH_AUTH_SOCK", sock)
	a, err := sshagent.Dial()
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestCreateIdentitiesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	defer db.Close()

	mgr := NewManager(NewDAO(), testAgent(t), nil)

	created, err := mgr.CreateIdentities(ctx, db)
	require.NoError(t, err)
	require.Len(t, created, 1)

	createdAgain, err := mgr.CreateIdentities(ctx, db)
	require.NoError(t, err)
	require.Empty(t, createdAgain, "re-running sync must not duplicate identities")
}

func TestGetPrivateIdentitiesDecryptsWithAgent(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	defer db.Close()

	mgr := NewManager(NewDAO(), testAgent(t), nil)
	created, err := mgr.CreateIdentities(ctx, db)
	require.NoError(t, err)
	require.Len(t, created, 1)

	var found []PrivateIdentity
	for priv, err := range mgr.GetPrivateIdentities(ctx, db) {
		require.NoError(t, err)
		found = append(found, priv)
	}
	require.Len(t, found, 1)
	require.Equal(t, created[0], found[0].Fingerprint)
	require.NotNil(t, found[0].PrivateKey)
}

func TestGetIdentitiesBasedOnAgentFiltersToOwnedKeys(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	defer db.Close()

	a := testAgent(t)
	mgr := NewManager(NewDAO(), a, nil)
	_, err = mgr.CreateIdentities(ctx, db)
	require.NoError(t, err)

	// a foreign identity, not backed by anything in this agent
	foreignRaw := RawIdentity{Fingerprint: "deadbeef", PublicKey: mustMarshalForeignKey(t)}
	require.NoError(t, NewDAO().Save(ctx, db, foreignRaw))

	var all []PublicIdentity
	for pub, err := range mgr.GetIdentities(ctx, db) {
		require.NoError(t, err)
		all = append(all, pub)
	}
	require.Len(t, all, 2)

	var owned []PublicIdentity
	for pub, err := range mgr.GetIdentitiesBasedOnAgent(ctx, db) {
		require.NoError(t, err)
		owned = append(owned, pub)
	}
	require.Len(t, owned, 1)
}

func mustMarshalForeignKey(t *testing.T) []byte {
	t.Helper()
	priv, err := newTestP256Key()
	require.NoError(t, err)
	return priv
}
