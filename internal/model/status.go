package model

// SyncStatus is the state of the remote mirror
type SyncStatus int

const (
	// SyncLocalOnly means no remote backend is configured
	SyncLocalOnly SyncStatus = iota
	// SyncSyncing means a session is being established or a snapshot is pending
	SyncSyncing
	// SyncSynced means the last remote operation succeeded
	SyncSynced
	// SyncError means sign-in or the subscription failed; there is no session
	SyncError
	// SyncOffline means a mirror failed while a session exists.
	// Local mutations continue; the next successful remote operation clears it.
	SyncOffline
)

// String returns the display name for a status
func (s SyncStatus) String() string {
	switch s {
	case SyncLocalOnly:
		return "local"
	case SyncSyncing:
		return "syncing"
	case SyncSynced:
		return "synced"
	case SyncError:
		return "error"
	case SyncOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// IsOffline reports whether local changes are currently not reaching the remote
func (s SyncStatus) IsOffline() bool {
	return s == SyncOffline || s == SyncError
}
