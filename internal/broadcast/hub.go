package broadcast

import (
	"errors"
	"sync"
)

// each subscriber owns a bounded mailbox; a full mailbox drops the update
// rather than blocking whichever connection published it
const mailboxSize = 50

var ErrNoChannel = errors.New("no broadcast channel for this game")

// Subscription is one connection's end of a game's fan-out channel.
type Subscription struct {
	mailbox chan []byte
}

// C - the inbound side: updates published by the peer.
func (that *Subscription) C() <-chan []byte {
	return that.mailbox
}

// Hub owns one fan-out channel per active game. Publishing delivers to every
// subscriber except the sender, in publish order.
type Hub struct {
	mu    sync.Mutex
	games map[string]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{
		games: make(map[string]map[*Subscription]struct{}),
	}
}

// Create - registers the channel for a new game and subscribes the caller.
// The host calls this; the channel exists before any peer can join.
func (that *Hub) Create(gameToken string) *Subscription {
	sub := &Subscription{mailbox: make(chan []byte, mailboxSize)}

	that.mu.Lock()
	defer that.mu.Unlock()

	that.games[gameToken] = map[*Subscription]struct{}{sub: {}}

	return sub
}

// Join - subscribes a second connection to an existing game channel.
func (that *Hub) Join(gameToken string) (*Subscription, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	subs, ok := that.games[gameToken]
	if !ok {
		return nil, ErrNoChannel
	}

	sub := &Subscription{mailbox: make(chan []byte, mailboxSize)}
	subs[sub] = struct{}{}

	return sub, nil
}

// Publish - fans payload out to every subscriber of the game except from.
func (that *Hub) Publish(gameToken string, from *Subscription, payload []byte) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for sub := range that.games[gameToken] {
		if sub == from {
			continue
		}

		select {
		case sub.mailbox <- payload:
		default:
			// peer stopped draining its mailbox; dropping beats blocking
		}
	}
}

// Leave - unsubscribes a connection; the channel disappears with its last
// subscriber.
func (that *Hub) Leave(gameToken string, sub *Subscription) {
	that.mu.Lock()
	defer that.mu.Unlock()

	subs, ok := that.games[gameToken]
	if !ok {
		return
	}

	delete(subs, sub)
	if len(subs) == 0 {
		delete(that.games, gameToken)
	}
}
