// Package repository defines error types that are reused across multiple
// repositories and the services built on them. These sentinel values allow
// higher layers such as handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a tournament, round, checkable or
// identifier does not exist (or does not belong to the tournament in
// the request path). Handlers translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrPermissionDenied is returned when a release gate rejects a
// non-administrative requester. Handlers translate it into an HTTP 403
// response.
var ErrPermissionDenied = errors.New("permission denied")

// ErrConflict signals a lost compare-and-set race on identifier
// creation. It is resolved inside the registry by re-reading the
// winning row and is never returned to HTTP clients.
var ErrConflict = errors.New("conflict")
