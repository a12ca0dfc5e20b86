package memory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atendeja/clinic-ai-platform/internal/flow"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client)
}

func TestLoadUnknownNumberCreatesEmptyRecord(t *testing.T) {
	s := newTestStore(t)

	m, err := s.Load(context.Background(), "+5511999990000")
	require.NoError(t, err)
	assert.Equal(t, "+5511999990000", m.PhoneNumber)
	assert.Zero(t, m.InteractionCount)
	assert.True(t, m.LastInteractionAt.IsZero())
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	m := New("+5511999990000")
	m.SetName("Maria Clara", now)
	m.InteractionCount = 3
	m.LastIntent = "agendamento"
	m.LastInteractionAt = now
	m.AppendTurn("user", "quero marcar uma consulta", now)
	m.Flow = &flow.State{Step: flow.StepServiceSelection, ClinicID: "cardio-prime", StartedAt: now, UpdatedAt: now}
	require.NoError(t, s.Save(context.Background(), m))

	got, err := s.Load(context.Background(), "+5511999990000")
	require.NoError(t, err)
	assert.Equal(t, "Maria Clara", got.UserName)
	assert.Equal(t, 3, got.InteractionCount)
	assert.Equal(t, "agendamento", got.LastIntent)
	require.NotNil(t, got.Flow)
	assert.Equal(t, flow.StepServiceSelection, got.Flow.Step)
	require.Len(t, got.RecentHistory, 1)
	assert.Equal(t, "quero marcar uma consulta", got.RecentHistory[0].Text)
}

func TestSaveRejectsRecordWithoutPhone(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.Save(context.Background(), New("")))
	assert.Error(t, s.Save(context.Background(), nil))
}

func TestSaveOverwritesExistingRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := New("+5511999990000")
	m.InteractionCount = 1
	require.NoError(t, s.Save(ctx, m))

	m.InteractionCount = 2
	m.Flow = nil
	require.NoError(t, s.Save(ctx, m))

	got, err := s.Load(ctx, "+5511999990000")
	require.NoError(t, err)
	assert.Equal(t, 2, got.InteractionCount)
	assert.Nil(t, got.Flow)
}
