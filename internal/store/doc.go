// Package store defines the persistence contract for variant sets along
// with the common error values shared by all store implementations.
package store
