package object

import "context"

// VideoStore defines the contract for resolving and releasing uploaded exercise
// videos. Uploads themselves happen out-of-band via presigned URLs issued by
// the gateway; this service only reads and deletes.
type VideoStore interface {
	// SignedURL returns a short-lived URL the vision service can fetch the
	// video from.
	SignedURL(ctx context.Context, storageKey string) (string, error)
	// Delete removes the video. Called once per item after its analysis
	// completes, success or failure.
	Delete(ctx context.Context, storageKey string) error
}
