// Package persistent provides immutable, structurally-shared collection
// types used as the building blocks of tenant state.
//
// Every mutating operation returns a new collection that shares unchanged
// substructure with its receiver, so producing a new version is sub-linear
// in the size of the collection rather than a full copy. The receiver is
// never modified and remains valid after the call.
//
// The zero value of both Vector and Map is the canonical empty collection:
// an independently-built empty collection and a collection emptied by
// deletions are observably identical.
package persistent
