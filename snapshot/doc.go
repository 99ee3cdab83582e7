// Package snapshot persists and restores point-in-time copies of the
// resting order books. Snapshots bound recovery time: on restart the
// newest snapshot is loaded first and only WAL records past its covering
// sequence are replayed, after which the covered WAL segments can be
// truncated.
package snapshot
