package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/lyra-voice/lyra/pkg/core/types"
)

// Document is the persisted settings document: the active profile plus the
// session flags. It is read at process start and written through on every
// mutation. Crash consistency is best effort; writes go through an atomic
// rename so the file is never observed half-written.
type Document struct {
	Profile types.Profile `yaml:"profile"`
	Flags   Flags         `yaml:"flags"`
}

// DefaultDocument returns the document used when no settings file exists yet.
func DefaultDocument() Document {
	return Document{
		Profile: types.Profile{
			Name:             "Lyra",
			Gender:           "female",
			Language:         types.BaseLanguage,
			Personality:      "warm, concise, a little dry",
			Description:      "a voice assistant that answers questions and runs simple commands",
			Role:             "assistant",
			Model:            "gemini-2.0-flash",
			CommandPackage:   "standard",
			TTSEngine:        "cartesia",
			RecognizerEngine: "cartesia",
		},
	}
}

// Settings reads and writes the settings document at a fixed path.
type Settings struct {
	path   string
	logger zerolog.Logger
}

// OpenSettings binds a Settings to path. The file is not touched until Load or
// Save is called.
func OpenSettings(path string, logger zerolog.Logger) *Settings {
	return &Settings{path: path, logger: logger}
}

// Path returns the settings file path.
func (s *Settings) Path() string { return s.path }

// Load reads the settings document. A missing file yields DefaultDocument.
func (s *Settings) Load() (Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultDocument(), nil
		}
		return Document{}, fmt.Errorf("read settings %q: %w", s.path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse settings %q: %w", s.path, err)
	}
	if doc.Profile.Language == "" {
		doc.Profile.Language = types.BaseLanguage
	}
	return doc, nil
}

// Save writes the document atomically (write to a temp file, then rename).
func (s *Settings) Save(doc Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write settings %q: %w", s.path, err)
	}
	return nil
}

// Watch reloads the document whenever the file changes on disk and hands it to
// onChange. It returns a stop function. External edits between turns are the
// expected use; the store's own write-throughs also trigger onChange, which is
// harmless because Reload with the current state is idempotent.
func (s *Settings) Watch(onChange func(Document)) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("settings watcher: %w", err)
	}
	// Watch the directory: editors and atomic renames replace the file inode.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch settings dir: %w", err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
					continue
				}
				if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
					continue
				}
				doc, err := s.Load()
				if err != nil {
					s.logger.Warn().Err(err).Msg("settings reload failed")
					continue
				}
				onChange(doc)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn().Err(err).Msg("settings watcher error")
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
