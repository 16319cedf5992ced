// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations, DTOs, and constants.

package api

// SessionState enumerates the states of a connection session.
type SessionState int

const (
	StateIdle SessionState = iota
	StateHandshaking
	StateReading
	StateWriting
	StateEofShutdown
	StateClosed
	StateHandedOff
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHandshaking:
		return "handshaking"
	case StateReading:
		return "reading"
	case StateWriting:
		return "writing"
	case StateEofShutdown:
		return "eof-shutdown"
	case StateClosed:
		return "closed"
	case StateHandedOff:
		return "handed-off"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can leave the state.
func (s SessionState) Terminal() bool {
	return s == StateClosed || s == StateHandedOff
}
