// Package types defines the Store interface, entity types, view patch
// semantics, and standard errors for the gridbase storage system.
package types
