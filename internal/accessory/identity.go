package accessory

import (
	"github.com/google/uuid"
)

// Namespace scopes accessory identities. Changing it changes every
// identity and orphans the whole cache.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/nerrad567/hood-bridge/accessory"))

// Identity is the cache key of an accessory: a version 5 UUID derived
// from the hood's unique ID.
type Identity string

// NewIdentity derives the identity of the hood with the given unique ID.
// The same uniqueID always yields the same Identity.
func NewIdentity(uniqueID string) Identity {
	return Identity(uuid.NewSHA1(Namespace, []byte(uniqueID)).String())
}

// String returns the canonical UUID text.
func (id Identity) String() string { return string(id) }

// Valid reports whether id parses as a UUID.
func (id Identity) Valid() bool {
	_, err := uuid.Parse(string(id))
	return err == nil
}
