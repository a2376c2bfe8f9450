package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/queue"
	"github.com/ofarooq21/AI-Fitness-Tracker/pkg/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis spins up a Redis container and returns a broker with a unique key prefix.
func setupRedis(t *testing.T) *queue.RedisBroker {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	opts, err := redis.ParseURL("redis://" + host + ":" + port.Port())
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	return queue.NewRedisBroker(client, "test-"+uuid.NewString()[:8], time.Minute)
}

func TestRedisBroker_UnknownTaskIsPending(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	b := setupRedis(t)

	st, err := b.State(context.Background(), "no-such-task")
	require.NoError(t, err)
	assert.Equal(t, models.TaskPending, st.Status)
}

func TestRedisBroker_Lifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	b := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, b.Ping(ctx))

	id, err := b.Enqueue(ctx, "echo", echoPayload{Value: "hi"})
	require.NoError(t, err)

	task, err := b.Reserve(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, id, task.ID)
	assert.JSONEq(t, `{"value":"hi"}`, string(task.Payload))

	require.NoError(t, b.SetState(ctx, id, queue.State{Status: models.TaskSuccess, Result: []byte(`{"echo":"hi"}`)}))
	require.NoError(t, b.Ack(ctx, task))

	st, err := b.State(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.TaskSuccess, st.Status)
	assert.JSONEq(t, `{"echo":"hi"}`, string(st.Result))
	assert.False(t, st.UpdatedAt.IsZero())

	// Nothing left anywhere.
	restored, err := b.RestoreUnacked(ctx)
	require.NoError(t, err)
	assert.Zero(t, restored)
	next, err := b.Reserve(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestRedisBroker_RequeueAndRestore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	b := setupRedis(t).WithLease(50 * time.Millisecond)
	ctx := context.Background()

	_, err := b.Enqueue(ctx, "echo", nil)
	require.NoError(t, err)

	task, err := b.Reserve(ctx, time.Second)
	require.NoError(t, err)
	require.NoError(t, b.Requeue(ctx, task))

	again, err := b.Reserve(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, task.ID, again.ID)
	assert.Equal(t, 1, again.Attempts)

	// Still leased: nothing to restore.
	restored, err := b.RestoreUnacked(ctx)
	require.NoError(t, err)
	assert.Zero(t, restored)

	// Left in flight past its lease, as if the worker crashed.
	time.Sleep(100 * time.Millisecond)
	restored, err = b.RestoreUnacked(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, restored)

	third, err := b.Reserve(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, third)
	assert.Equal(t, task.ID, third.ID)
	assert.Equal(t, 2, third.Attempts)
}

func TestRedisBroker_ExtendKeepsLease(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	b := setupRedis(t).WithLease(100 * time.Millisecond)
	ctx := context.Background()

	_, err := b.Enqueue(ctx, "echo", nil)
	require.NoError(t, err)
	task, err := b.Reserve(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, task)

	for range 6 {
		time.Sleep(40 * time.Millisecond)
		require.NoError(t, b.Extend(ctx, task))
	}

	restored, err := b.RestoreUnacked(ctx)
	require.NoError(t, err)
	assert.Zero(t, restored)

	require.NoError(t, b.Ack(ctx, task))
	time.Sleep(150 * time.Millisecond)
	restored, err = b.RestoreUnacked(ctx)
	require.NoError(t, err)
	assert.Zero(t, restored)
}

func TestRedisBroker_TerminalStateIsFinal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	b := setupRedis(t)
	ctx := context.Background()

	id, err := b.Enqueue(ctx, "echo", nil)
	require.NoError(t, err)
	require.NoError(t, b.SetState(ctx, id, queue.State{Status: models.TaskStarted}))
	require.NoError(t, b.SetState(ctx, id, queue.State{Status: models.TaskFailure, Error: "bad input"}))

	err = b.SetState(ctx, id, queue.State{Status: models.TaskSuccess, Result: []byte(`{}`)})
	assert.ErrorIs(t, err, queue.ErrTaskFinished)

	st, err := b.State(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.TaskFailure, st.Status)
	assert.Equal(t, "bad input", st.Error)
	assert.Nil(t, st.Result)
}

func TestRedisBroker_WithWorker(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	b := setupRedis(t)
	reg := queue.NewRegistry()
	require.NoError(t, reg.Register(echoHandler()))
	startWorker(t, b, reg, 3)

	id, err := b.Enqueue(context.Background(), "echo", echoPayload{Value: "redis"})
	require.NoError(t, err)

	st := waitTerminal(t, b, id)
	assert.Equal(t, models.TaskSuccess, st.Status)
	assert.JSONEq(t, `{"echo":"redis"}`, string(st.Result))
}
