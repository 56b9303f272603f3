// Package photo persists visitor photos and hands back durable references.
// The references are consumed only for display in notifications and the
// owner dashboard.
package photo

import "context"

type Store interface {
	// Put stores the photo and returns a durable reference for it.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// PresignGet returns a short-lived viewing URL for a stored photo.
	PresignGet(ctx context.Context, key string) (string, error)
}
