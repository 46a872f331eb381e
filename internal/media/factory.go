package media

import (
	"context"
	"fmt"

	"dreamlog/internal/config"
	"dreamlog/internal/dream"
)

// NewMediaStoreFromConfig creates a MediaStore implementation based on the
// media config type.
func NewMediaStoreFromConfig(ctx context.Context, cfg config.MediaConfig) (dream.MediaStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "s3":
		return NewS3Store(ctx, cfg)
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem media store requires fs_root to be set")
		}
		return NewFileSystemStore(cfg.FSRoot)
	default:
		return nil, fmt.Errorf("unknown media store type: %s", cfg.Type)
	}
}
