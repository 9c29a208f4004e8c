// Package store provides the in-memory item store behind the /items API.
//
// Items are arbitrary JSON values represented as [structpb.Value], the
// protobuf well-known type for dynamically typed JSON. The store never
// shares memory with its callers: every write stores a deep copy and every
// read returns one, so mutating a value after handing it to the store (or
// after reading it back) has no effect on stored state.
//
// The main components are:
//
//   - [Store]: Interface defining CRUD and subscription operations
//   - [MemoryStore]: Mutex-guarded implementation of Store with pub/sub
//   - [Change]: Event published for every successful mutation
//   - [Clone], [DecodeJSON], [EncodeJSON], [NewValue]: value helpers
//
// Subscribers receive changes via channels with non-blocking sends (slow
// subscribers miss changes rather than stall writers).
//
// Nothing is persisted; the store lives as long as the process.
package store
