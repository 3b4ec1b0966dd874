package core

import "time"

// DefaultTypingTimeout is the debounce interval after which a quiet typist
// is considered to have stopped.
const DefaultTypingTimeout = 3 * time.Second

// typingExpiry is posted back into the hub loop when a debounce timer fires.
type typingExpiry struct {
	room string
	gen  uint64
}

// typingState tracks the single typist shown for a room. A newly typing user
// replaces, rather than stacks with, the previous one.
type typingState struct {
	user  string
	gen   uint64
	timer *time.Timer
}

// typingCoordinator converts raw keystroke events into start/stop decisions.
// It is owned by the hub goroutine; timers fire on their own goroutines and
// re-enter the hub through the expired channel, guarded by a generation
// counter so a stale expiry never clears a newer typist.
type typingCoordinator struct {
	timeout time.Duration
	rooms   map[string]*typingState
	gen     uint64
	expired chan typingExpiry
	done    <-chan struct{}
}

func newTypingCoordinator(timeout time.Duration, done <-chan struct{}) *typingCoordinator {
	if timeout <= 0 {
		timeout = DefaultTypingTimeout
	}
	return &typingCoordinator{
		timeout: timeout,
		rooms:   make(map[string]*typingState),
		expired: make(chan typingExpiry, 64),
		done:    done,
	}
}

// keystroke registers a raw typing event. It returns whether a typing-started
// broadcast is due for user, and the identity of a replaced typist whose
// indicator must be cleared first ("" when none). Repeat keystrokes from the
// current typist only reset the timer.
func (t *typingCoordinator) keystroke(room, user string) (started bool, replaced string) {
	st := t.rooms[room]
	if st != nil && st.user == user {
		st.gen = t.nextGen()
		st.timer.Stop()
		st.timer = t.afterTimeout(room, st.gen)
		return false, ""
	}

	if st != nil {
		replaced = st.user
		st.timer.Stop()
	}

	gen := t.nextGen()
	t.rooms[room] = &typingState{
		user:  user,
		gen:   gen,
		timer: t.afterTimeout(room, gen),
	}
	return true, replaced
}

// clear removes the room's typing state if the current typist matches user
// (or unconditionally when user is ""). Reports whether an indicator was
// actually cleared, i.e. whether a typing-stopped broadcast is due.
func (t *typingCoordinator) clear(room, user string) bool {
	st := t.rooms[room]
	if st == nil {
		return false
	}
	if user != "" && st.user != user {
		return false
	}
	st.timer.Stop()
	delete(t.rooms, room)
	return true
}

// expire handles a debounce timer firing. Stale generations are ignored.
func (t *typingCoordinator) expire(e typingExpiry) bool {
	st := t.rooms[e.room]
	if st == nil || st.gen != e.gen {
		return false
	}
	delete(t.rooms, e.room)
	return true
}

// typist returns the identity currently shown as typing in room, or "".
func (t *typingCoordinator) typist(room string) string {
	if st := t.rooms[room]; st != nil {
		return st.user
	}
	return ""
}

func (t *typingCoordinator) nextGen() uint64 {
	t.gen++
	return t.gen
}

func (t *typingCoordinator) afterTimeout(room string, gen uint64) *time.Timer {
	return time.AfterFunc(t.timeout, func() {
		select {
		case t.expired <- typingExpiry{room: room, gen: gen}:
		case <-t.done:
		}
	})
}
