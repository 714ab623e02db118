package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipebook/internal/types"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)

	rec := Record{Token: "abc", User: &types.User{ID: 2, Username: "chef"}}
	require.NoError(t, store.Save(context.Background(), rec))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rec, *got)

	require.NoError(t, store.Clear(context.Background()))
	require.NoError(t, store.Clear(context.Background()))
	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoSession))

	sess := New(NewFileStore(path))
	assert.Error(t, sess.Init(context.Background()))
	assert.Equal(t, Anonymous, sess.State())
}

func TestRedisStore(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db, "work")
	key := RedisKeyPrefix + "work"

	rec := Record{Token: "abc", User: &types.User{ID: 3}}
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, data, 0).SetVal("OK")
	mock.ExpectGet(key).SetVal(string(data))
	mock.ExpectDel(key).SetVal(1)

	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
	require.NoError(t, store.Save(context.Background(), rec))
	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Token)
	require.NoError(t, store.Clear(context.Background()))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreDefaultProfile(t *testing.T) {
	db, _ := redismock.NewClientMock()
	assert.Equal(t, RedisKeyPrefix+"default", NewRedisStore(db, "").key)
}

func TestLogoutIgnoresStoreErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectDel(RedisKeyPrefix + "default").SetErr(errors.New("connection refused"))

	sess := New(NewRedisStore(db, ""))
	sess.set(Authenticated, "tok", nil)
	sess.Logout(context.Background())

	assert.Equal(t, Anonymous, sess.State())
	assert.Empty(t, sess.Token())
}
