// Package store provides persistence for the coupon record set.
//
// Every implementation follows the full-set replace discipline: WriteAll
// persists the entire record collection in one shot, and subscribers are
// pushed the complete set on subscribe and after every successful write.
// There are no partial or delta writes; the last writer wins.
//
// Two implementations live here:
//   - SQLite: durable local storage (WAL mode, single writer)
//   - Memory: in-process storage for tests and dev
//
// The realtime package adds a third, a websocket client speaking to a
// remote gateway, behind the same RecordStore interface.
package store
