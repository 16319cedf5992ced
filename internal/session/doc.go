// Package session
// Author: momentics <momentics@gmail.com>
//
// Per-connection HTTP session engine.
//
// A Session owns one transport and drives it through
// Handshaking → Reading ⇄ Writing → EofShutdown → Closed, or hands it to a
// WebSocket handler (HandedOff). All state lives on a single event-loop
// goroutine; I/O runs on helper goroutines that report completion as
// events, so nothing inside a session needs a lock.
//
// Idleness is policed by one Watchdog per session, and pipelining is
// bounded by a WriteQueue that pauses reading while it is full.
package session
