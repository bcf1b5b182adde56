// Package inventory defines Kumo's view of the remote compute-instance
// inventory: the client interface, the reference snapshot type, query
// predicates, and the typed error conditions handlers branch on.
package inventory

import "time"

// Reference is the read-only snapshot of one remote compute instance. It is
// owned by the remote service; Kumo never mutates it and never caches it
// across commands.
type Reference struct {
	// ID is the remote service's opaque instance identifier.
	ID string
	// Name is the operator-facing server name.
	Name string
	// Metadata holds the instance tags (owner, init, test, branch, ...).
	Metadata map[string]string
	// Addresses maps network name to the addresses attached on that network.
	Addresses map[string][]string
	// Status is the remote service's lifecycle state (running, exited, ...).
	Status string
	// Created is when the remote service created the instance.
	Created time.Time
}

// Query selects instances. Name is an exact match when non-empty;
// SearchOptions filter server attributes; Metadata filters instance tags,
// inverted when Negate is set.
type Query struct {
	Name          string
	SearchOptions map[string]string
	Metadata      map[string]string
	Negate        bool
}

// CreateRequest carries everything needed to provision one instance.
type CreateRequest struct {
	Name     string
	Image    string
	Userdata string
	Metadata map[string]string
}
