package port

import "context"

// SourceFetcher materializes a remote URL or data URI into a file under
// destDir and returns its path. Local paths pass through untouched.
type SourceFetcher interface {
	Fetch(ctx context.Context, uri string, destDir string) (string, error)
}
