// Package wal is the durable command log in front of the matching engine.
// Every accepted place/cancel command is appended here before the book is
// mutated, so a restart can rebuild the in-memory state by replaying the
// log on top of the newest snapshot.
package wal
