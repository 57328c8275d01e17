// Package delivery defines the contract every transport front end satisfies.
package delivery

import "context"

// Delivery is a server that accepts requests until its context ends.
type Delivery interface {
	// Serve blocks while the server runs.
	Serve(ctx context.Context) error
}
