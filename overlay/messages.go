// Package overlay composes the on-screen text layers: categorized informational messages and floating comments.
//
// Managers never talk to the player; they call the tick callback with the
// recomposed text whenever it changes and let the caller push it.
package overlay

import (
	"strings"
	"sync"
	"time"

	"github.com/muesli/reflow/wordwrap"
	"github.com/samber/lo"
)

// Infinite keeps a message on screen until it is removed.
const Infinite time.Duration = 0

// LineBreak is the ASS hard line break used between and inside messages.
const LineBreak = `\N`

type message struct {
	text   string
	gen    uint64
	expiry *time.Timer
}

// Messages holds one message per category, rendered in insertion order.
type Messages struct {
	mu      sync.Mutex
	emitMu  sync.Mutex
	order   []string
	entries map[string]*message
	gen     uint64
	wrap    int
	last    string
	tick    func(text string)
}

// NewMessages creates a manager that wraps lines at wrap columns (0 disables wrapping)
// and calls tick with the composed text after each visible change.
func NewMessages(tick func(text string), wrap int) *Messages {
	if tick == nil {
		tick = func(string) {}
	}
	return &Messages{
		entries: make(map[string]*message),
		wrap:    wrap,
		tick:    tick,
	}
}

// Add inserts or overwrites the message of category. A non-positive d keeps it forever.
// An overwritten message keeps its position.
func (m *Messages) Add(category, text string, d time.Duration) {
	m.mu.Lock()
	m.gen++
	gen := m.gen

	entry, ok := m.entries[category]
	if ok {
		if entry.expiry != nil {
			entry.expiry.Stop()
		}
		entry.text = text
		entry.gen = gen
		entry.expiry = nil
	} else {
		entry = &message{text: text, gen: gen}
		m.entries[category] = entry
		m.order = append(m.order, category)
	}

	if d > 0 {
		entry.expiry = time.AfterFunc(d, func() { m.expire(category, gen) })
	}
	m.mu.Unlock()

	m.changed()
}

// Remove deletes the message of category, if any.
func (m *Messages) Remove(category string) {
	m.RemoveMany(category)
}

// RemoveMany deletes the messages of every given category.
func (m *Messages) RemoveMany(categories ...string) {
	m.mu.Lock()
	for _, category := range categories {
		m.deleteLocked(category)
	}
	m.mu.Unlock()

	m.changed()
}

// Clear wipes every message and cancels pending expiries.
func (m *Messages) Clear() {
	m.mu.Lock()
	for _, entry := range m.entries {
		if entry.expiry != nil {
			entry.expiry.Stop()
		}
	}
	m.entries = make(map[string]*message)
	m.order = nil
	m.mu.Unlock()

	m.changed()
}

// Has reports whether category currently holds a message.
func (m *Messages) Has(category string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[category]
	return ok
}

// Text joins live messages in insertion order with ASS line breaks.
func (m *Messages) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.textLocked()
}

func (m *Messages) expire(category string, gen uint64) {
	m.mu.Lock()
	entry, ok := m.entries[category]
	if !ok || entry.gen != gen {
		m.mu.Unlock()
		return
	}
	m.deleteLocked(category)
	m.mu.Unlock()

	m.changed()
}

func (m *Messages) deleteLocked(category string) {
	entry, ok := m.entries[category]
	if !ok {
		return
	}
	if entry.expiry != nil {
		entry.expiry.Stop()
	}
	delete(m.entries, category)
	m.order = lo.Without(m.order, category)
}

func (m *Messages) textLocked() string {
	lines := make([]string, 0, len(m.order))
	for _, category := range m.order {
		text := m.entries[category].text
		if m.wrap > 0 {
			text = wordwrap.String(text, m.wrap)
		}
		lines = append(lines, strings.ReplaceAll(text, "\n", LineBreak))
	}
	return strings.Join(lines, LineBreak)
}

// changed ticks with the latest text when it differs from the last one sent.
func (m *Messages) changed() {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	text := m.textLocked()
	if text == m.last {
		m.mu.Unlock()
		return
	}
	m.last = text
	m.mu.Unlock()

	m.tick(text)
}
