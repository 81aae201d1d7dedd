// Package mongo registers MongoDB-backed session history storage for voyage.
//
// Use clients/mongo to build the low-level client and pass it to NewStore to
// obtain a history.Store that persists the append-only result log.
package mongo
