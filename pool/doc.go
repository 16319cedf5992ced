// Package pool
// Author: momentics <momentics@gmail.com>
//
// Memory reuse helpers for hioload-http. Response heads are serialized into
// pooled byte slices so steady-state keep-alive traffic does not allocate
// per response.
package pool
