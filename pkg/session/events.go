package session

// StateChangeEvent is fired when a Session advances its lifecycle state.
type StateChangeEvent struct {
	session  *Session
	from, to State
}

// Session returns the session.
func (e *StateChangeEvent) Session() *Session { return e.session }

// From returns the previous state.
func (e *StateChangeEvent) From() State { return e.from }

// To returns the new state.
func (e *StateChangeEvent) To() State { return e.to }

// DisconnectEvent is fired once when a Session is closed.
type DisconnectEvent struct {
	session *Session
	reason  error
}

// Session returns the closed session.
func (e *DisconnectEvent) Session() *Session { return e.session }

// Reason returns why the session was closed, nil on a regular disconnect.
func (e *DisconnectEvent) Reason() error { return e.reason }
