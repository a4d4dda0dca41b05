package port

import (
	"context"

	"github.com/clipstream/clipstream-extraction-service/internal/domain/entity"
)

// ChunkArchiver packs an item's chunks (manifest plus payloads) into a
// single archive file at outputPath.
type ChunkArchiver interface {
	WriteArchive(ctx context.Context, item *entity.ExtractionItem, outputPath string) error
}
