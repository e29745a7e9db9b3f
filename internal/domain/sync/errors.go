package sync

import "errors"

var (
	ErrSyncStatusNotFound  = errors.New("sync: status record not found")
	ErrSyncDisabled        = errors.New("sync: synchronization disabled for store")
	ErrRemoteUnavailable   = errors.New("sync: remote store unavailable")
	ErrRemoteTreeMalformed = errors.New("sync: remote category tree malformed")
)
