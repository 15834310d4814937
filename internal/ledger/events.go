package ledger

import "time"

// EventKind names the collection a committed mutation touched.
type EventKind string

const (
	EventAccounts     EventKind = "accounts"
	EventTransactions EventKind = "transactions"
	EventCategories   EventKind = "categories"
	EventBudgets      EventKind = "budgets"
	EventSavingsGoals EventKind = "savingsGoals"
	EventRecurring    EventKind = "recurringItems"
	EventNotes        EventKind = "noteSuggestions"
	EventSettings     EventKind = "settings"
	EventReset        EventKind = "reset"
	EventSyncApplied  EventKind = "syncApplied"
)

// Event is emitted after each committed mutation. Subscribers use it as a
// change signal; the payload is intentionally small since consumers read the
// store for state.
type Event struct {
	Kind EventKind
	ID   string
	At   time.Time
}

// Subscribe registers a change listener and returns its channel together
// with an unsubscribe function. The channel is buffered; if a subscriber
// falls behind, events are dropped rather than blocking mutations, which is
// safe because consumers treat events as dirty flags, not as a log.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub == ch {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, unsubscribe
}

// publish fans an event out to all subscribers without blocking.
// Callers must hold s.mu.
func (s *Store) publish(kind EventKind, id string) {
	ev := Event{Kind: kind, ID: id, At: s.now()}
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
