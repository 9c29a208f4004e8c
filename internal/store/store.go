package store

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// Op identifies the kind of mutation described by a [Change].
type Op string

const (
	// OpCreated is published when a key is created or replaced by [Store.Create].
	OpCreated Op = "created"

	// OpUpdated is published when [Store.Update] succeeds.
	OpUpdated Op = "updated"

	// OpDeleted is published when [Store.Delete] removes a key.
	OpDeleted Op = "deleted"
)

// Change describes a single successful mutation of the store.
type Change struct {
	// Op is the mutation that happened.
	Op Op

	// Key is the affected item key.
	Key string

	// Value is a copy of the value stored after the mutation.
	// nil for OpDeleted.
	Value *structpb.Value

	// At is when the mutation was applied.
	At time.Time
}

// Store defines the item store used by the HTTP layer.
//
// Implementations must be safe for concurrent access and must isolate
// stored state from callers: values passed in are copied before being
// stored, and values handed out are copies that callers may freely mutate.
type Store interface {
	// Create stores a copy of value at key, replacing any existing entry.
	Create(key string, value *structpb.Value)

	// Read returns a copy of the value stored at key.
	// The boolean is false when the key is not set.
	Read(key string) (*structpb.Value, bool)

	// Update merges patch into the value at key and reports whether the key
	// existed. When both the stored value and patch are JSON objects, the
	// top-level fields of patch overwrite those of the stored value and all
	// other fields are kept. Otherwise the stored value is replaced by patch.
	// A missing key is never created.
	Update(key string, patch *structpb.Value) bool

	// Delete removes key and reports whether it was present.
	Delete(key string) bool

	// Clear removes every entry. It does not publish changes.
	Clear()

	// Keys returns the stored keys in ascending order.
	Keys() []string

	// Len returns the number of stored keys.
	Len() int

	// Subscribe returns a channel that receives a [Change] for every
	// successful mutation. The channel is buffered; slow consumers miss
	// changes. Caller must call Unsubscribe when done.
	Subscribe() <-chan Change

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Change)
}
