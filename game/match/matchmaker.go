// Package match pairs players into versus games and hands out practice
// games. Queueing is ticket based: a caller queues, holds the ticket,
// and either receives a match on its channel or cancels.
package match

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/lolney/codesiege/game/session"
	"github.com/lolney/codesiege/metrics"
)

// Match is the outcome delivered to both paired tickets.
type Match struct {
	GameID string `json:"gameId"`
}

// Ticket represents one player waiting in the queue.
type Ticket struct {
	done chan Match
}

// Done returns the channel the match is delivered on. It yields exactly
// one value unless the ticket is cancelled.
func (t *Ticket) Done() <-chan Match {
	return t.done
}

// MatchMaker pairs queued players first-come first-served.
type MatchMaker struct {
	mu      sync.Mutex
	waiting []*Ticket
	manager *session.Manager
	log     zerolog.Logger
}

// New creates a matchmaker over the instance manager.
func New(manager *session.Manager, log zerolog.Logger) *MatchMaker {
	return &MatchMaker{manager: manager, log: log}
}

// Queue enters the caller into the versus queue. If another player is
// already waiting, a game is created and both tickets resolve to the
// same game id inside this call.
func (m *MatchMaker) Queue() *Ticket {
	ticket := &Ticket{done: make(chan Match, 1)}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.waiting) == 0 {
		m.waiting = append(m.waiting, ticket)
		metrics.QueueDepth.Set(float64(len(m.waiting)))
		return ticket
	}

	opponent := m.waiting[0]
	m.waiting = m.waiting[1:]
	metrics.QueueDepth.Set(float64(len(m.waiting)))

	inst := m.manager.CreateInstance(session.ModeVersus)
	m.log.Info().Str("game", inst.ID).Msg("versus match made")
	match := Match{GameID: inst.ID}
	opponent.done <- match
	ticket.done <- match
	return ticket
}

// Cancel withdraws a waiting ticket. Cancelling a ticket that was
// already matched or cancelled is a no-op.
func (m *MatchMaker) Cancel(ticket *Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, waiting := range m.waiting {
		if waiting == ticket {
			m.waiting = append(m.waiting[:i:i], m.waiting[i+1:]...)
			metrics.QueueDepth.Set(float64(len(m.waiting)))
			return
		}
	}
}

// CreatePractice starts a solo game and returns its id.
func (m *MatchMaker) CreatePractice() string {
	inst := m.manager.CreateInstance(session.ModePractice)
	return inst.ID
}

// QueueLen returns the number of players waiting.
func (m *MatchMaker) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiting)
}
