package debug

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
)

const DefaultMaxEntries = 50

type PanelOption func(*Panel)

// WithEnabled turns the panel on or off. A disabled panel never subscribes
// and renders nothing.
func WithEnabled(enabled bool) PanelOption {
	return func(p *Panel) { p.enabled = enabled }
}

// WithMaxEntries bounds the number of retained events. Values <= 0 select
// DefaultMaxEntries.
func WithMaxEntries(n int) PanelOption {
	return func(p *Panel) {
		if n > 0 {
			p.max = n
		}
	}
}

/*
Panel is the observer side of the bus: it keeps the most recent maxEntries
events in a ring buffer. Buffering lives here, never in the Bus.
*/
type Panel struct {
	enabled bool
	max     int

	mu   sync.Mutex
	ring []Event
	next int
	size int

	unsubscribe func()
	now         func() time.Time
}

func NewPanel(bus *Bus, opts ...PanelOption) *Panel {
	p := &Panel{
		enabled: true,
		max:     DefaultMaxEntries,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.ring = make([]Event, p.max)
	if p.enabled && bus != nil {
		p.unsubscribe = bus.Subscribe(p.record)
	}
	return p
}

func (p *Panel) Enabled() bool { return p.enabled }

func (p *Panel) MaxEntries() int { return p.max }

func (p *Panel) record(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ring[p.next] = ev
	p.next = (p.next + 1) % p.max
	if p.size < p.max {
		p.size++
	}
}

// Entries returns the retained events, most recent first.
func (p *Panel) Entries() []Event {
	if !p.enabled {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, 0, p.size)
	for i := 1; i <= p.size; i++ {
		out = append(out, p.ring[(p.next-i+p.max)%p.max])
	}
	return out
}

// Clear drops every retained event.
func (p *Panel) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ring = make([]Event, p.max)
	p.next, p.size = 0, 0
}

// Render writes a table of the retained events to w.
func (p *Panel) Render(w io.Writer) error {
	if !p.enabled {
		return nil
	}
	entries := p.Entries()
	now := p.now()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "cache events (%s of %s)\n", humanize.Comma(int64(len(entries))), humanize.Comma(int64(p.max)))
	fmt.Fprintln(tw, "WHEN\tACTION\tENTRY\tTTL\tORIGIN")
	for _, ev := range entries {
		ttl := "-"
		if ev.TTL > 0 {
			ttl = ev.TTL.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			humanize.RelTime(ev.Time, now, "ago", "from now"), ev.Action, ev.ID(), ttl, ev.Origin)
	}
	return tw.Flush()
}

// Close detaches the panel from its bus.
func (p *Panel) Close() {
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
}
