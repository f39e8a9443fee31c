package history

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyra-voice/lyra/pkg/core/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func turnAt(offset time.Duration, utterance, response string) types.Turn {
	start := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC).Add(offset)
	return types.Turn{
		ID:         uuid.NewString(),
		Utterance:  utterance,
		Response:   response,
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
	}
}

func TestAppendAndRecent(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Append(turnAt(0, "hello", "hi")))
	require.NoError(t, s.Append(turnAt(time.Minute, "what time is it", "It is noon.")))

	turns := s.Recent(10)
	require.Len(t, turns, 2)
	assert.Equal(t, "hello", turns[0].Utterance)
	assert.Equal(t, "what time is it", turns[1].Utterance)
}

func TestRecentReturnsChronologicalTail(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(turnAt(time.Duration(i)*time.Minute, fmt.Sprintf("q%d", i), "a")))
	}

	turns := s.Recent(2)
	require.Len(t, turns, 2)
	assert.Equal(t, "q3", turns[0].Utterance)
	assert.Equal(t, "q4", turns[1].Utterance)
}

func TestRecentNonPositive(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Append(turnAt(0, "q", "a")))
	assert.Nil(t, s.Recent(0))
	assert.Nil(t, s.Recent(-1))
}

func TestFallbackFlagRoundTrip(t *testing.T) {
	s := openTestStore(t)

	turn := turnAt(0, "tell me about otters", "they hold hands")
	turn.Fallback = true
	require.NoError(t, s.Append(turn))

	turns := s.Recent(1)
	require.Len(t, turns, 1)
	assert.True(t, turns[0].Fallback)
}

func TestDuplicateIDRejected(t *testing.T) {
	s := openTestStore(t)

	turn := turnAt(0, "q", "a")
	require.NoError(t, s.Append(turn))
	require.Error(t, s.Append(turn))
}

func TestOpenOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(turnAt(0, "persisted", "yes")))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	turns := s2.Recent(1)
	require.Len(t, turns, 1)
	assert.Equal(t, "persisted", turns[0].Utterance)
}
