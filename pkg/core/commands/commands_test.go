package commands

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyra-voice/lyra/pkg/core/registry"
	"github.com/lyra-voice/lyra/pkg/core/session"
	"github.com/lyra-voice/lyra/pkg/core/types"
)

// fakeTranslator marks translations so tests can see who translated what.
type fakeTranslator struct{}

func (fakeTranslator) Translate(_ context.Context, text, _, to string) string {
	return "[" + to + "] " + text
}

func (fakeTranslator) Supported(language string) bool {
	switch language {
	case "en", "de", "fr", "es", "ja":
		return true
	}
	return false
}

func fixedClock() time.Time {
	// A Tuesday afternoon.
	return time.Date(2026, 9, 1, 15, 4, 5, 0, time.UTC)
}

func testDeps(t *testing.T) (Deps, *session.Store) {
	t.Helper()
	store := session.NewStore(types.Profile{
		Name:           "Lyra",
		Language:       types.BaseLanguage,
		CommandPackage: "standard",
	})
	return Deps{
		Session:    store,
		Translator: fakeTranslator{},
		Clock:      fixedClock,
	}, store
}

func entities(pairs ...string) types.Entities {
	e := make(types.Entities)
	for i := 0; i+1 < len(pairs); i += 2 {
		e[pairs[i]] = append(e[pairs[i]], pairs[i+1])
	}
	return e
}

func TestTableCoversStandardPackage(t *testing.T) {
	d, _ := testDeps(t)
	_, err := registry.Load("standard", Table(d))
	require.NoError(t, err)
}

func TestTableCoversMinimalPackage(t *testing.T) {
	d, _ := testDeps(t)
	_, err := registry.Load("minimal", Table(d))
	require.NoError(t, err)
}

func TestMuteIdempotence(t *testing.T) {
	d, store := testDeps(t)
	ctx := context.Background()

	got, err := d.mute(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "Muted. I will keep answering silently.", got)
	assert.True(t, store.Mute())

	got, err = d.mute(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "I am already muted.", got)
	assert.True(t, store.Mute())
}

func TestUnmute(t *testing.T) {
	d, store := testDeps(t)
	ctx := context.Background()

	got, err := d.unmute(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "I am not muted.", got)

	store.SetMute(true)
	got, err = d.unmute(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "I am back.", got)
	assert.False(t, store.Mute())
}

func TestStopSetsExit(t *testing.T) {
	d, store := testDeps(t)

	got, err := d.stop(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Goodbye.", got)
	assert.True(t, store.Exit())
}

func TestGetTime(t *testing.T) {
	d, _ := testDeps(t)
	got, err := d.getTime(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "It is 3:04 PM.", got)
}

func TestGetDate(t *testing.T) {
	d, _ := testDeps(t)
	got, err := d.getDate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Today is Tuesday, September 1, 2026.", got)
}
