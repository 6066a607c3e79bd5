// Package cache holds the in-memory mirror of persisted variant sets.
// The cache is authoritative for the running session; the persistent store
// is the source of truth across restarts. The mirror is shared between the
// interactive path and the background worker, so every read-modify-write
// runs under the cache mutex.
package cache
