// Package store holds the latest rendered state of every discovered entity
// and fans updates out to subscribers.
//
//   - [Store]: interface for storage and subscription
//   - [MemoryStore]: in-memory implementation with pub/sub
//   - [EntityState]: JSON representation of one entity
//   - [SourceStatus]: polling health of one data source
//
// Subscribers receive updates via channels with non-blocking sends; slow
// subscribers miss updates rather than stall the polling goroutines.
package store
