// Package session provides the in-memory chat session registry.
//
// A Store owns every live Record and guards the map and each record's
// mutable fields with one store-wide mutex. Callers never receive a live
// pointer into the map: Get and Peek return copies, and turn mutations go
// through Store methods that run inside the critical section.
//
// Components:
//   - Record: per-session state (timestamps, current turn, memory handle)
//   - Store: thread-safe create/get/delete/touch
//   - Reaper: periodic eviction of sessions idle longer than the TTL
//
// Lifecycle:
//  1. Create inserts a fresh record and returns its id
//  2. Get touches the record (refreshes LastActivity)
//  3. The chat orchestrator drives BeginTurn, AppendTrace, CommitAnswer
//  4. The Reaper or an explicit Delete removes the record
//
// Lookups of unknown ids are not errors. Get reports ok=false and turn
// mutators return ErrNotFound; callers recover by creating a new session.
//
// Example Usage:
//
//	store := session.NewStore(session.WithLogger(logger))
//	reaper := session.NewReaper(store, 10*time.Minute)
//	reaper.Start(ctx)
//	defer reaper.Stop()
//
//	sid := store.Create()
//	rec, ok := store.Get(sid)
package session
