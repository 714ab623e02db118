package query

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStoreServesBeforeNetwork(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := New(WithStore(NewRedisStore(db), time.Minute))
	key := NewKey("categories")

	mock.ExpectGet(RedisKeyPrefix + key.String()).SetVal(`["Soups","Pies"]`)

	r := Fetch(context.Background(), c, key, func(ctx context.Context) ([]string, error) {
		t.Fatal("network fetch on store hit")
		return nil, nil
	})

	assert.Equal(t, StatusSuccess, r.Status)
	assert.Equal(t, []string{"Soups", "Pies"}, r.Data)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreWrittenAfterMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := New(WithStore(NewRedisStore(db), time.Minute))
	key := NewKey("recipe", 1)
	payload, err := json.Marshal(map[string]int{"id": 1})
	require.NoError(t, err)

	mock.ExpectGet(RedisKeyPrefix + key.String()).RedisNil()
	mock.ExpectSet(RedisKeyPrefix+key.String(), payload, time.Minute).SetVal("OK")

	r := Fetch(context.Background(), c, key, func(ctx context.Context) (map[string]int, error) {
		return map[string]int{"id": 1}, nil
	})

	assert.Equal(t, 1, r.Data["id"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreDroppedOnRefetch(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := New(WithStore(NewRedisStore(db), time.Minute))
	key := NewKey("recipe", 2)
	id := RedisKeyPrefix + key.String()

	mock.ExpectGet(id).SetVal(`1`)
	mock.ExpectDel(id).SetVal(1)
	mock.ExpectSet(id, []byte(`2`), time.Minute).SetVal("OK")

	Fetch(context.Background(), c, key, func(ctx context.Context) (int, error) { return 2, nil })
	r := Refetch[int](context.Background(), c, key)

	assert.Equal(t, 2, r.Data)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReloadSkipsStoreRead(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := New(WithStore(NewRedisStore(db), time.Minute))
	key := NewKey("recipe", 3)
	id := RedisKeyPrefix + key.String()

	mock.ExpectDel(id).SetVal(1)
	mock.ExpectSet(id, []byte(`"rated"`), time.Minute).SetVal("OK")

	r := Reload(context.Background(), c, key, func(ctx context.Context) (string, error) { return "rated", nil })

	assert.Equal(t, "rated", r.Data)
	require.NoError(t, mock.ExpectationsWereMet())
}
