package store

import "time"

// EntityState is the latest rendered value of one discovered entity.
//
// EntityState is the storage representation used by the REST API and SSE.
// It is decoupled from the metric package's types so the JSON shape can
// evolve independently.
type EntityState struct {
	// ID is the entity's unique id ("{scope}_{proxy}:{server}_{metric}").
	ID string `json:"id"`

	// Source is the display name of the polled load balancer.
	Source string `json:"source"`

	Proxy  string `json:"proxy"`
	Server string `json:"server"`
	Metric string `json:"metric"`

	// Name is the metric's display name, e.g. "Current Sessions".
	Name string `json:"name"`

	// Device and Model describe the HAProxy object the entity belongs to.
	Device string `json:"device"`
	Model  string `json:"model"`

	// Kind is the metric kind, e.g. "integer_counter" or "availability".
	Kind string `json:"kind"`

	// Value is the projected value; nil when it cannot be derived.
	Value any `json:"value"`

	// Unit is set for data size metrics.
	Unit string `json:"unit,omitempty"`

	// Available is false while the source's most recent poll failed.
	Available bool `json:"available"`

	// Attributes holds extra state such as the raw status string.
	Attributes map[string]string `json:"attributes,omitempty"`

	// UpdatedAt is when the snapshot backing Value was fetched.
	UpdatedAt time.Time `json:"updated_at"`
}

// SourceStatus is the polling health of one data source.
type SourceStatus struct {
	Name string `json:"name"`

	// Scope is the source's stable identifier, the prefix of its entity ids.
	Scope string `json:"scope"`

	URL string `json:"url"`

	// IntervalSeconds is the scan interval.
	IntervalSeconds int `json:"interval_seconds"`

	// Available is true when the most recent poll succeeded.
	Available bool `json:"available"`

	ConsecutiveFailures int `json:"consecutive_failures"`

	// LastError is the most recent poll error, nil after a success.
	LastError *string `json:"last_error"`

	LastSuccess time.Time `json:"last_success"`
	LastAttempt time.Time `json:"last_attempt"`

	// Rows is the number of objects in the current snapshot.
	Rows int `json:"rows"`

	// Entities is the number of discovered entities.
	Entities int `json:"entities"`
}

// Store defines the interface for storing and subscribing to entity states.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Update stores a state and notifies all subscribers.
	// States are keyed by ID; later updates replace earlier ones.
	Update(state EntityState)

	// Get returns the state stored under id.
	Get(id string) (EntityState, bool)

	// GetAll returns all stored states ordered by ID.
	// The returned slice is a snapshot; modifications do not affect the store.
	GetAll() []EntityState

	// UpdateSource stores a source's status keyed by Name.
	UpdateSource(status SourceStatus)

	// GetSources returns all source statuses ordered by Name.
	GetSources() []SourceStatus

	// Subscribe returns a channel that receives state updates.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan EntityState

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan EntityState)
}
