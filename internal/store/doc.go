// Package store persists the announcement collection.
//
// The collection is small and always read and written as a whole, which
// keeps the drivers trivial and sidesteps partial-update consistency.
// The file driver is the default; the sqlite driver is an optional
// build-tagged alternative for deployments that already ship a database
// file.
package store
