package sync

import "fmt"

// DisplayState is one of the four mutually exclusive states the sync
// indicator can show.
type DisplayState string

const (
	DisplayOffline DisplayState = "offline"
	DisplaySyncing DisplayState = "syncing"
	DisplayPending DisplayState = "pending"
	DisplayLive    DisplayState = "live"
)

// StatusReport is the human-readable rendering of a SyncState.
type StatusReport struct {
	State         DisplayState
	PendingWrites int
	Label         string
}

// Report derives the display state from a sync state snapshot. Pure
// function; precedence is offline, then syncing, then pending, then live.
func Report(s SyncState) StatusReport {
	switch {
	case !s.Online:
		label := "Offline"
		if s.PendingWrites > 0 {
			label = fmt.Sprintf("Offline (%d pending)", s.PendingWrites)
		}
		return StatusReport{State: DisplayOffline, PendingWrites: s.PendingWrites, Label: label}

	case s.Syncing:
		label := "Syncing..."
		if s.PendingWrites > 0 {
			label = fmt.Sprintf("Syncing (%d pending)...", s.PendingWrites)
		}
		return StatusReport{State: DisplaySyncing, PendingWrites: s.PendingWrites, Label: label}

	case s.PendingWrites > 0:
		return StatusReport{
			State:         DisplayPending,
			PendingWrites: s.PendingWrites,
			Label:         fmt.Sprintf("Pending (%d) - will sync", s.PendingWrites),
		}
	}

	label := "Live"
	if !s.LastSyncAt.IsZero() {
		label = fmt.Sprintf("Live (synced %s)", s.LastSyncAt.Format("15:04:05"))
	}
	return StatusReport{State: DisplayLive, Label: label}
}
