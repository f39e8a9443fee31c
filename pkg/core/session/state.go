// Package session holds the cross-turn state shared by the dialogue pipeline:
// the active profile and the handful of flags command handlers use to change
// the behavior of later pipeline stages.
//
// Ownership convention: a flag is written by command handlers (or the
// post-processing translator) and read-and-cleared by exactly one turn
// controller checkpoint. No other component may clear it. The mutex exists for
// the scheduler, whose callbacks run on a worker goroutine; the turn loop
// itself is strictly sequential.
package session

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lyra-voice/lyra/pkg/core/types"
)

// Flag names accepted by the generic Flag/SetFlag accessors.
const (
	FlagMute                  = "mute"
	FlagExit                  = "exit"
	FlagReconfigureRecognizer = "reconfigure_recognizer"
	FlagReconfigureVerbalizer = "reconfigure_verbalizer"
	FlagResetLanguage         = "reset_language"
)

// Profile property names accepted by ProfileProperty/SetProfileProperty.
const (
	PropName           = "name"
	PropGender         = "gender"
	PropLanguage       = "language"
	PropPersonality    = "personality"
	PropDescription    = "description"
	PropSystemPrompt   = "system_prompt"
	PropRole           = "role"
	PropModel          = "model"
	PropCommandPackage = "command_package"
	PropTTSEngine      = "tts_engine"
	PropVoiceID        = "voice_id"
	PropRecognizer     = "recognizer_engine"
)

// Flags is the set of cross-turn signals. PreviousLanguage is meaningful only
// while ResetLanguage is set; the two are always written together.
type Flags struct {
	Mute                  bool   `yaml:"mute" json:"mute"`
	Exit                  bool   `yaml:"exit" json:"exit"`
	ReconfigureRecognizer bool   `yaml:"reconfigure_recognizer" json:"reconfigure_recognizer"`
	ReconfigureVerbalizer bool   `yaml:"reconfigure_verbalizer" json:"reconfigure_verbalizer"`
	ResetLanguage         bool   `yaml:"reset_language" json:"reset_language"`
	PreviousLanguage      string `yaml:"previous_language,omitempty" json:"previous_language,omitempty"`
}

// Store is the session state store. All reads reflect the latest write within
// the process. Every mutation is written through to the settings document on a
// best-effort basis; a write-through failure is logged and the in-memory state
// stays authoritative.
type Store struct {
	mu      sync.Mutex
	profile types.Profile
	flags   Flags

	persist func(Document) error
	logger  zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPersist installs the write-through sink invoked after every mutation.
func WithPersist(fn func(Document) error) Option {
	return func(s *Store) { s.persist = fn }
}

// WithLogger sets the store's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates a session store for one run of the turn controller.
func NewStore(profile types.Profile, opts ...Option) *Store {
	s := &Store{
		profile: profile,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromDocument creates a store seeded from a loaded settings document.
func FromDocument(doc Document, opts ...Option) *Store {
	s := NewStore(doc.Profile, opts...)
	s.flags = doc.Flags
	return s
}

// Snapshot returns a copy of the current profile and flags.
func (s *Store) Snapshot() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Document{Profile: s.profile, Flags: s.flags}
}

// Profile returns a copy of the active profile.
func (s *Store) Profile() types.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Reload replaces profile and flags from a settings document, e.g. after the
// file was edited outside the process.
func (s *Store) Reload(doc Document) {
	s.mu.Lock()
	s.profile = doc.Profile
	s.flags = doc.Flags
	s.mu.Unlock()
}

// Flag returns the named flag. Unknown names return false.
func (s *Store) Flag(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch name {
	case FlagMute:
		return s.flags.Mute
	case FlagExit:
		return s.flags.Exit
	case FlagReconfigureRecognizer:
		return s.flags.ReconfigureRecognizer
	case FlagReconfigureVerbalizer:
		return s.flags.ReconfigureVerbalizer
	case FlagResetLanguage:
		return s.flags.ResetLanguage
	}
	return false
}

// SetFlag sets the named flag. ResetLanguage cannot be set through here; use
// BeginLanguageOverride so the previous-language invariant holds.
func (s *Store) SetFlag(name string, value bool) error {
	s.mu.Lock()
	switch name {
	case FlagMute:
		s.flags.Mute = value
	case FlagExit:
		s.flags.Exit = value
	case FlagReconfigureRecognizer:
		s.flags.ReconfigureRecognizer = value
	case FlagReconfigureVerbalizer:
		s.flags.ReconfigureVerbalizer = value
	case FlagResetLanguage:
		s.mu.Unlock()
		return fmt.Errorf("flag %q is managed by the language override; use BeginLanguageOverride", name)
	default:
		s.mu.Unlock()
		return fmt.Errorf("unknown session flag %q", name)
	}
	doc := Document{Profile: s.profile, Flags: s.flags}
	s.mu.Unlock()
	s.writeThrough(doc)
	return nil
}

// Mute reports the mute flag.
func (s *Store) Mute() bool { return s.Flag(FlagMute) }

// SetMute sets the mute flag.
func (s *Store) SetMute(v bool) { _ = s.SetFlag(FlagMute, v) }

// Exit reports the exit flag.
func (s *Store) Exit() bool { return s.Flag(FlagExit) }

// SetExit sets the exit flag.
func (s *Store) SetExit(v bool) { _ = s.SetFlag(FlagExit, v) }

// ReconfigureRecognizer reports the recognizer rebuild flag.
func (s *Store) ReconfigureRecognizer() bool { return s.Flag(FlagReconfigureRecognizer) }

// SetReconfigureRecognizer sets the recognizer rebuild flag.
func (s *Store) SetReconfigureRecognizer(v bool) { _ = s.SetFlag(FlagReconfigureRecognizer, v) }

// ReconfigureVerbalizer reports the verbalizer rebuild flag.
func (s *Store) ReconfigureVerbalizer() bool { return s.Flag(FlagReconfigureVerbalizer) }

// SetReconfigureVerbalizer sets the verbalizer rebuild flag.
func (s *Store) SetReconfigureVerbalizer(v bool) { _ = s.SetFlag(FlagReconfigureVerbalizer, v) }

// ResetLanguage reports whether a one-shot language override is pending revert.
func (s *Store) ResetLanguage() bool { return s.Flag(FlagResetLanguage) }

// PreviousLanguage returns the language to revert to. Valid only while
// ResetLanguage is true.
func (s *Store) PreviousLanguage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags.PreviousLanguage
}

// BeginLanguageOverride switches the profile to a temporary language and
// records the current one so the turn controller can revert after the response
// has been spoken once. Both sides of the previous-language invariant are
// written under one lock.
func (s *Store) BeginLanguageOverride(temporary string) {
	s.mu.Lock()
	s.flags.PreviousLanguage = s.profile.Language
	s.flags.ResetLanguage = true
	s.profile.Language = temporary
	doc := Document{Profile: s.profile, Flags: s.flags}
	s.mu.Unlock()
	s.writeThrough(doc)
}

// EndLanguageOverride restores the profile language recorded by
// BeginLanguageOverride and clears the override. It returns the restored
// language. Calling it without a pending override is a no-op.
func (s *Store) EndLanguageOverride() string {
	s.mu.Lock()
	if !s.flags.ResetLanguage {
		s.mu.Unlock()
		return ""
	}
	restored := s.flags.PreviousLanguage
	s.profile.Language = restored
	s.flags.PreviousLanguage = ""
	s.flags.ResetLanguage = false
	doc := Document{Profile: s.profile, Flags: s.flags}
	s.mu.Unlock()
	s.writeThrough(doc)
	return restored
}

// ProfileProperty returns the named profile attribute.
func (s *Store) ProfileProperty(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch name {
	case PropName:
		return s.profile.Name, nil
	case PropGender:
		return s.profile.Gender, nil
	case PropLanguage:
		return s.profile.Language, nil
	case PropPersonality:
		return s.profile.Personality, nil
	case PropDescription:
		return s.profile.Description, nil
	case PropSystemPrompt:
		return s.profile.SystemPrompt, nil
	case PropRole:
		return s.profile.Role, nil
	case PropModel:
		return s.profile.Model, nil
	case PropCommandPackage:
		return s.profile.CommandPackage, nil
	case PropTTSEngine:
		return s.profile.TTSEngine, nil
	case PropVoiceID:
		return s.profile.VoiceID, nil
	case PropRecognizer:
		return s.profile.RecognizerEngine, nil
	}
	return "", fmt.Errorf("unknown profile property %q", name)
}

// SetProfileProperty updates the named profile attribute.
func (s *Store) SetProfileProperty(name, value string) error {
	s.mu.Lock()
	switch name {
	case PropName:
		s.profile.Name = value
	case PropGender:
		s.profile.Gender = value
	case PropLanguage:
		s.profile.Language = value
	case PropPersonality:
		s.profile.Personality = value
	case PropDescription:
		s.profile.Description = value
	case PropSystemPrompt:
		s.profile.SystemPrompt = value
	case PropRole:
		s.profile.Role = value
	case PropModel:
		s.profile.Model = value
	case PropCommandPackage:
		s.profile.CommandPackage = value
	case PropTTSEngine:
		s.profile.TTSEngine = value
	case PropVoiceID:
		s.profile.VoiceID = value
	case PropRecognizer:
		s.profile.RecognizerEngine = value
	default:
		s.mu.Unlock()
		return fmt.Errorf("unknown profile property %q", name)
	}
	doc := Document{Profile: s.profile, Flags: s.flags}
	s.mu.Unlock()
	s.writeThrough(doc)
	return nil
}

func (s *Store) writeThrough(doc Document) {
	if s.persist == nil {
		return
	}
	if err := s.persist(doc); err != nil {
		s.logger.Warn().Err(err).Msg("settings write-through failed")
	}
}
