package statestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"miner-node/logging"
)

const (
	latestFileName = "latest.json"
	epochsDirName  = "epochs"
	epochFilePrefx = "epoch_"
)

// Directory structure: {baseDir}/latest.json, {baseDir}/epochs/epoch_{N}.json
type FileStorage struct {
	baseDir string
}

func NewFileStorage(baseDir string) *FileStorage {
	return &FileStorage{baseDir: baseDir}
}

// Atomic write: temp file + rename
func writeFileAtomic(targetPath string, data []byte) error {
	tempPath := targetPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename to target: %w", err)
	}
	return nil
}

func (f *FileStorage) epochPath(epoch int) string {
	return filepath.Join(f.baseDir, epochsDirName, fmt.Sprintf("%s%d.json", epochFilePrefx, epoch))
}

func (f *FileStorage) Save(ctx context.Context, cp Checkpoint) error {
	logging.Debug("Saving checkpoint", logging.Storage, "epoch", cp.Epoch, "baseDir", f.baseDir)
	if err := os.MkdirAll(filepath.Join(f.baseDir, epochsDirName), 0755); err != nil {
		return fmt.Errorf("create epochs dir: %w", err)
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	if err := writeFileAtomic(f.epochPath(cp.Epoch), data); err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(f.baseDir, latestFileName), data)
}

func (f *FileStorage) Load(ctx context.Context) (*Checkpoint, error) {
	data, err := os.ReadFile(filepath.Join(f.baseDir, latestFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read latest checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

func (f *FileStorage) History(ctx context.Context, limit int) ([]Checkpoint, error) {
	entries, err := os.ReadDir(filepath.Join(f.baseDir, epochsDirName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read epochs dir: %w", err)
	}

	epochs := make([]int, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, epochFilePrefx) || !strings.HasSuffix(name, ".json") {
			continue
		}
		epoch, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, epochFilePrefx), ".json"))
		if err != nil {
			continue
		}
		epochs = append(epochs, epoch)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(epochs)))

	out := make([]Checkpoint, 0, limit)
	for _, epoch := range epochs {
		if limit > 0 && len(out) >= limit {
			break
		}
		data, err := os.ReadFile(f.epochPath(epoch))
		if err != nil {
			continue
		}
		var cp Checkpoint
		if err := json.Unmarshal(data, &cp); err != nil {
			logging.Warn("Skipping unreadable checkpoint file", logging.Storage, "epoch", epoch, "error", err.Error())
			continue
		}
		out = append(out, cp)
	}
	return out, nil
}

func (f *FileStorage) Close() {}

var _ StateStorage = (*FileStorage)(nil)
