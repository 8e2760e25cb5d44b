package debug

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedBus(t time.Time) *Bus {
	b := NewBus()
	b.Now = func() time.Time { return t }
	return b
}

//
// ================= BUS =================
//

func TestBusStampsTimeAndOrigin(t *testing.T) {
	at := time.Unix(1000, 0)
	b := fixedBus(at)

	var got []Event
	b.Subscribe(func(ev Event) { got = append(got, ev) })
	b.Emit(Event{Action: ActionSet, Namespace: "auth", Key: "currentUser", Time: time.Unix(1, 0)})

	require.Len(t, got, 1)
	assert.Equal(t, at, got[0].Time)
	assert.Equal(t, OriginLocal, got[0].Origin)
	assert.Equal(t, "auth/currentUser", got[0].ID())
}

func TestBusDeliversInOrderAndSurvivesPanics(t *testing.T) {
	b := NewBus()
	var order []int
	b.Subscribe(func(Event) { order = append(order, 1) })
	b.Subscribe(func(Event) { panic("boom") })
	b.Subscribe(func(Event) { order = append(order, 3) })

	b.Emit(Event{Action: ActionGet})
	assert.Equal(t, []int{1, 3}, order)
}

func TestBusUnsubscribeIsIdempotent(t *testing.T) {
	b := NewBus()
	calls := 0
	unsub := b.Subscribe(func(Event) { calls++ })
	assert.Equal(t, 1, b.Listeners())

	unsub()
	unsub()
	b.Emit(Event{Action: ActionGet})

	assert.Zero(t, calls)
	assert.Zero(t, b.Listeners())
}

func TestNilBusDropsEvents(t *testing.T) {
	var b *Bus
	b.Emit(Event{Action: ActionSet})
	assert.Zero(t, b.Listeners())
}

//
// ================= PANEL =================
//

func TestPanelKeepsMostRecentFirst(t *testing.T) {
	b := NewBus()
	p := NewPanel(b, WithMaxEntries(2))
	defer p.Close()

	b.Emit(Event{Action: ActionSet, Namespace: "auth", Key: "a"})
	b.Emit(Event{Action: ActionGet, Namespace: "auth", Key: "b"})
	b.Emit(Event{Action: ActionInvalidate, Namespace: "auth", Key: "c"})

	got := p.Entries()
	require.Len(t, got, 2)
	assert.Equal(t, "auth/c", got[0].ID())
	assert.Equal(t, "auth/b", got[1].ID())
}

func TestPanelDefaultMaxEntries(t *testing.T) {
	p := NewPanel(NewBus(), WithMaxEntries(0))
	assert.Equal(t, DefaultMaxEntries, p.MaxEntries())
}

func TestDisabledPanelRendersNothing(t *testing.T) {
	b := NewBus()
	p := NewPanel(b, WithEnabled(false))

	assert.Zero(t, b.Listeners())
	b.Emit(Event{Action: ActionSet})
	assert.Nil(t, p.Entries())

	var buf bytes.Buffer
	require.NoError(t, p.Render(&buf))
	assert.Empty(t, buf.String())
}

func TestPanelRender(t *testing.T) {
	at := time.Unix(1000, 0)
	b := fixedBus(at)
	p := NewPanel(b)
	p.now = func() time.Time { return at.Add(3 * time.Second) }

	b.Emit(Event{Action: ActionSet, Namespace: "auth", Key: "currentUser", TTL: time.Hour})
	b.Emit(Event{Action: ActionSet, Namespace: "auth", Key: "currentUser", Origin: OriginRemote})

	var buf bytes.Buffer
	require.NoError(t, p.Render(&buf))
	out := buf.String()
	assert.Contains(t, out, "cache events (2 of 50)")
	assert.Contains(t, out, "auth/currentUser")
	assert.Contains(t, out, "1h0m0s")
	assert.Contains(t, out, "remote")
	assert.Contains(t, out, "3 seconds ago")
}

func TestPanelClear(t *testing.T) {
	b := NewBus()
	p := NewPanel(b)
	b.Emit(Event{Action: ActionSet})
	p.Clear()
	assert.Empty(t, p.Entries())
}
