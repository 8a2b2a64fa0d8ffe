// Package settings keeps the client runtime's own settings store in
// agreement with the launcher's configuration. The client owns the
// file; the launcher owns a handful of keys in it and must leave every
// other key exactly as the client wrote it.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/openuo/uolaunch/pkg/logger"
)

const (
	// FileName is the client's settings file inside the client
	// directory.
	FileName = "settings.json"

	// razorAssembly is the plugin assembly filename inside the Razor
	// directory.
	razorAssembly = "Razor.exe"

	settingsFileMode = 0o644
)

// Owned keys. Everything else in the file belongs to the client.
const (
	keyGameDir = "ultimaonlinedirectory"
	keyHost    = "ip"
	keyPort    = "port"
	keyPlugins = "plugins"
)

// Values are the launcher-owned settings pushed into the client's
// store.
type Values struct {
	// GameFilesDir is the directory holding the game-asset bundle.
	GameFilesDir string

	// ServerHost and ServerPort name the game server endpoint.
	ServerHost string
	ServerPort int

	// RazorDir is the plugin install directory; empty disables the
	// plugin entry.
	RazorDir string
}

// Syncer performs read-merge-write updates of a client settings file.
type Syncer struct {
	clientDir string
	log       logger.Logger
}

// NewSyncer creates a Syncer for the client directory.
func NewSyncer(clientDir string, log logger.Logger) *Syncer {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Syncer{clientDir: clientDir, log: log}
}

// Path returns the settings file path.
func (s *Syncer) Path() string {
	return filepath.Join(s.clientDir, FileName)
}

// Sync merges the launcher-owned keys into the client's settings file.
// A missing file starts from an empty object; unknown keys are
// preserved verbatim. The write is atomic (sibling temp file, rename).
func (s *Syncer) Sync(values Values) error {
	doc, err := s.read()
	if err != nil {
		return err
	}

	doc[keyGameDir] = values.GameFilesDir
	doc[keyHost] = values.ServerHost
	doc[keyPort] = values.ServerPort

	if values.RazorDir != "" {
		doc[keyPlugins] = []any{filepath.Join(values.RazorDir, razorAssembly)}
	} else {
		doc[keyPlugins] = []any{}
	}

	return s.write(doc)
}

// read loads the existing settings document, or an empty one when the
// file does not exist yet.
func (s *Syncer) read() (map[string]any, error) {
	data, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}

	if err != nil {
		return nil, errors.Wrap(err, "reading client settings")
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", FileName)
	}

	if doc == nil {
		doc = map[string]any{}
	}

	return doc, nil
}

func (s *Syncer) write(doc map[string]any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding client settings")
	}

	data = append(data, '\n')

	tmpPath := s.Path() + ".tmp"

	if err := os.WriteFile(tmpPath, data, settingsFileMode); err != nil {
		return errors.Wrap(err, "writing client settings")
	}

	if err := os.Rename(tmpPath, s.Path()); err != nil {
		_ = os.Remove(tmpPath)

		return errors.Wrap(err, "replacing client settings")
	}

	s.log.Debug("client settings synced", "path", s.Path())

	return nil
}
