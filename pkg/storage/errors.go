package storage

import "errors"

// ErrPersist is returned by Store.Add when the write could not be
// completed because of an I/O or integrity error (spec error kind
// ERR_PERSIST). Callers — the recorder — log and swallow it.
var ErrPersist = errors.New("storage: persist failed")
