package posted

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"econ-calendar-bot/internal/types"
)

// FileBackend stores each bucket as a JSON array of tuples in dir/posted_<bucket>.json.
type FileBackend struct {
	dir string
}

// NewFileBackend creates the directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create posted dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) Name() string { return "file" }

// Path returns the file holding bucket.
func (b *FileBackend) Path(bucket string) string {
	return filepath.Join(b.dir, "posted_"+bucket+".json")
}

func (b *FileBackend) Load(_ context.Context, bucket string) ([]types.Identity, error) {
	data, err := os.ReadFile(b.Path(bucket))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// Save writes a temp file next to the target and renames it into place.
func (b *FileBackend) Save(_ context.Context, bucket string, ids []types.Identity) error {
	data, err := encode(ids)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(b.dir, "posted_"+bucket+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, b.Path(bucket))
}

func encode(ids []types.Identity) ([]byte, error) {
	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, []string(id))
	}
	return json.Marshal(rows)
}

func decode(data []byte) ([]types.Identity, error) {
	var rows [][]string
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
	}
	ids := make([]types.Identity, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			return nil, fmt.Errorf("%w: empty identity tuple", ErrStorageCorrupt)
		}
		ids = append(ids, types.Identity(row))
	}
	return ids, nil
}
