package catalog

import (
	"context"
	"time"
)

// PageClient extracts the four primary-source listings in one session
// against the script tool.
type PageClient interface {
	Extract(ctx context.Context) (Extraction, error)
}

// Fetcher performs a single validated, rate-limited HTTP GET.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Hasher computes digests for content versioning.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}

// SnapshotStore persists and reloads the working snapshot. Implementations
// must make WriteSnapshot atomic with respect to readers of the manifest:
// a failed write leaves the previous snapshot as the last good state.
type SnapshotStore interface {
	// Previous loads the last written character records keyed by id.
	// A missing snapshot yields an empty map, not an error.
	Previous() (map[string]Character, error)

	// PreviousManifest returns the last manifest, or nil if none exists.
	PreviousManifest() (*Manifest, error)

	// WriteSnapshot writes per-edition records, the combined listing, and
	// the manifest.
	WriteSnapshot(chars []Character, manifest Manifest) error

	// Lock takes the exclusive run lock. The returned release function must
	// be called when the run finishes.
	Lock() (func(), error)
}
