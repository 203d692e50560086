package history

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuneroom/live-service/internal/domain"
)

func TestMemoryStore_AppendAssignsDenseSeq(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	target := domain.RoomTarget("jazz")

	for i := 1; i <= 3; i++ {
		msg, err := s.Append(ctx, domain.Message{Target: target, Sender: "u1", Body: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
		require.Equal(t, int64(i), msg.Seq)
	}

	// другая комната нумеруется независимо
	msg, err := s.Append(ctx, domain.Message{Target: domain.RoomTarget("blues"), Sender: "u1", Body: "x"})
	require.NoError(t, err)
	require.Equal(t, int64(1), msg.Seq)
}

func TestMemoryStore_HistoryPagination(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	target := domain.RoomTarget("jazz")

	for i := 0; i < 5; i++ {
		_, err := s.Append(ctx, domain.Message{Target: target, Sender: "u1", Body: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
	}

	p1, err := s.History(ctx, target, "", 2)
	require.NoError(t, err)
	require.Len(t, p1.Messages, 2)
	require.Equal(t, "m0", p1.Messages[0].Body)
	require.NotEmpty(t, p1.NextPageToken)

	// идемпотентность: тот же токен — тот же срез
	again, err := s.History(ctx, target, "", 2)
	require.NoError(t, err)
	require.Equal(t, p1, again)

	p2, err := s.History(ctx, target, p1.NextPageToken, 2)
	require.NoError(t, err)
	require.Equal(t, "m2", p2.Messages[0].Body)

	p3, err := s.History(ctx, target, p2.NextPageToken, 2)
	require.NoError(t, err)
	require.Len(t, p3.Messages, 1)
	require.Empty(t, p3.NextPageToken)
}

func TestMemoryStore_HistoryBadCursor(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.History(context.Background(), domain.RoomTarget("jazz"), "not-a-token", 10)
	require.ErrorIs(t, err, ErrInvalidCursor)
}

func TestMemoryStore_DirectTargetIsCanonical(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Append(ctx, domain.Message{Target: domain.DirectTarget("u2", "u1"), Sender: "u2", Body: "hi"})
	require.NoError(t, err)

	page, err := s.History(ctx, domain.DirectTarget("u1", "u2"), "", 10)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
}

func TestMemoryStore_Drop(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	target := domain.RoomTarget("jazz")

	_, err := s.Append(ctx, domain.Message{Target: target, Sender: "u1", Body: "hi"})
	require.NoError(t, err)
	require.NoError(t, s.Drop(ctx, target))

	page, err := s.History(ctx, target, "", 10)
	require.NoError(t, err)
	require.Empty(t, page.Messages)
}
