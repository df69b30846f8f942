package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileStorageBackend reads the on-disk queue layout: one JSON metadata file
// per message under <dir>/<queue type>/.
type FileStorageBackend struct {
	queueDir string
}

// NewFileStorageBackend creates a new file-based storage backend
func NewFileStorageBackend(queueDir string) *FileStorageBackend {
	return &FileStorageBackend{
		queueDir: queueDir,
	}
}

// Name identifies the backend
func (fs *FileStorageBackend) Name() string {
	return "file"
}

// List returns all messages in a specific queue. Unreadable or malformed
// metadata files are skipped.
func (fs *FileStorageBackend) List(ctx context.Context, queueType QueueType) ([]Message, error) {
	queuePath := filepath.Join(fs.queueDir, string(queueType))

	files, err := os.ReadDir(queuePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Message{}, nil
		}
		return nil, fmt.Errorf("failed to read queue directory: %w", err)
	}

	messages := make([]Message, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		filePath := filepath.Join(queuePath, file.Name())
		data, err := os.ReadFile(filePath)
		if err != nil {
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		msg.QueueType = queueType

		messages = append(messages, msg)
	}

	return messages, nil
}

// Stats counts messages and sums their recorded sizes in every queue
func (fs *FileStorageBackend) Stats(ctx context.Context) (QueueStats, error) {
	stats := QueueStats{}

	for _, qType := range QueueTypes {
		messages, err := fs.List(ctx, qType)
		if err != nil {
			return QueueStats{}, fmt.Errorf("failed to list %s queue: %w", qType, err)
		}

		var size int64
		for _, msg := range messages {
			size += msg.Size
		}
		stats.add(qType, len(messages), size)
	}

	stats.LastUpdated = time.Now()
	return stats, nil
}

// Close is a no-op for the file backend
func (fs *FileStorageBackend) Close() error {
	return nil
}
