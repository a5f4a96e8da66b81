package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/samber/mo"

	"github.com/leoapplecool/discord-x-housing-bridge/models"
)

// FileRulesRepository persists the rule document and operator settings as
// JSON files under a data directory. A file lock guards against two bridge
// processes pointed at the same directory clobbering each other.
type FileRulesRepository struct {
	rulesPath    string
	settingsPath string
	lock         *flock.Flock
}

func NewFileRulesRepository(dataDir string) *FileRulesRepository {
	return &FileRulesRepository{
		rulesPath:    filepath.Join(dataDir, "mappings.json"),
		settingsPath: filepath.Join(dataDir, "settings.json"),
		lock:         flock.New(filepath.Join(dataDir, ".bridge.lock")),
	}
}

func (r *FileRulesRepository) Load(ctx context.Context) (*models.BridgeRules, error) {
	raw, err := os.ReadFile(r.rulesPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.rulesPath, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var rules models.BridgeRules
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", r.rulesPath, err)
	}
	return &rules, nil
}

func (r *FileRulesRepository) Save(ctx context.Context, rules *models.BridgeRules) error {
	raw, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode rules document: %w", err)
	}
	return r.writeLocked(r.rulesPath, raw)
}

func (r *FileRulesRepository) GetSetting(ctx context.Context, key string) (mo.Option[string], error) {
	values, err := r.readSettings()
	if err != nil {
		return mo.None[string](), err
	}
	if value, ok := values[key]; ok {
		return mo.Some(value), nil
	}
	return mo.None[string](), nil
}

func (r *FileRulesRepository) UpsertSetting(ctx context.Context, key, value string) error {
	values, err := r.readSettings()
	if err != nil {
		return err
	}
	values[key] = value

	raw, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return r.writeLocked(r.settingsPath, raw)
}

func (r *FileRulesRepository) readSettings() (map[string]string, error) {
	raw, err := os.ReadFile(r.settingsPath)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.settingsPath, err)
	}

	values := map[string]string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", r.settingsPath, err)
		}
	}
	return values, nil
}

// writeLocked writes the file atomically (temp file + rename) under the
// repository lock.
func (r *FileRulesRepository) writeLocked(path string, raw []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	if err := r.lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire data dir lock: %w", err)
	}
	defer func() {
		_ = r.lock.Unlock()
	}()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
