// Package store provides cache.Store implementations.
//
//   - Memory: bounded in-process store backed by otter, with an occupancy
//     counter that rejects new keys once capacity is reached
//   - Redis: JSON entries with native key expiry
//   - Memcached: JSON entries with whole-second expiry
//
// All stores return cache.ErrCacheMiss for absent or undecodable entries and
// treat an empty key or a non-positive ttl passed to Set as "do not cache".
package store
