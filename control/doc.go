// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime control layer for the HTTP server: configuration snapshots with
// reload listeners, session counters, and debug probes, combined behind
// api.Control by Controller.
//
// All types here are safe for concurrent use. A nil *MetricsRegistry is a
// valid no-op sink, so sessions created without a control plane can call
// it unconditionally.
package control
