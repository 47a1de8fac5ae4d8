package rating

import (
	"sort"
	"time"
)

// PlayerState is a player's accumulated rating state.
type PlayerState struct {
	Name        string
	Rating      float64 // raw, unbounded above, never below the floor
	Games       int
	LastSeen    time.Time
	Uncertainty float64
}

// Ledger is the single mutable owner of player state during a replay. Callers
// only ever receive copies of its entries.
type Ledger struct {
	players  map[string]*PlayerState
	lastDate time.Time
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{players: make(map[string]*PlayerState)}
}

// Put stores a copy of s, replacing any existing state for the same name.
func (l *Ledger) Put(s PlayerState) {
	cp := s
	l.players[s.Name] = &cp
	if s.LastSeen.After(l.lastDate) {
		l.lastDate = s.LastSeen
	}
}

// Get returns a copy of the named player's state.
func (l *Ledger) Get(name string) (PlayerState, bool) {
	s, ok := l.players[name]
	if !ok {
		return PlayerState{}, false
	}
	return *s, true
}

// Len returns the number of tracked players.
func (l *Ledger) Len() int { return len(l.players) }

// LastDate returns the most recent day applied to the ledger.
func (l *Ledger) LastDate() time.Time { return l.lastDate }

// States returns copies of every player state ordered by name.
func (l *Ledger) States() []PlayerState {
	out := make([]PlayerState, 0, len(l.players))
	for _, s := range l.players {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
