package task

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cnpj-workers/internal/common/logger"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTasks() []Task {
	return []Task{
		{
			Identifier: "12345678000195",
			Status:     StatusDone,
			EnqueuedAt: time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC),
			Name:       "EMPRESA TESTE",
		},
	}
}

func TestCache_GetMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, 30*time.Second, logger.NewTestLogger(t))

	mock.ExpectGet(cacheKey).RedisNil()

	_, ok := cache.Get(context.Background())
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_SetThenGet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, 30*time.Second, logger.NewTestLogger(t))

	tasks := sampleTasks()
	data, err := json.Marshal(tasks)
	require.NoError(t, err)

	mock.ExpectSet(cacheKey, data, 30*time.Second).SetVal("OK")
	cache.Set(context.Background(), tasks)

	mock.ExpectGet(cacheKey).SetVal(string(data))
	got, ok := cache.Get(context.Background())

	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "12345678000195", got[0].Identifier)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_CorruptPayloadDropped(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, 30*time.Second, logger.NewTestLogger(t))

	mock.ExpectGet(cacheKey).SetVal("{not json")
	mock.ExpectDel(cacheKey).SetVal(1)

	_, ok := cache.Get(context.Background())
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_Invalidate(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, 30*time.Second, logger.NewTestLogger(t))

	mock.ExpectDel(cacheKey).SetVal(1)

	require.NoError(t, cache.Invalidate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
