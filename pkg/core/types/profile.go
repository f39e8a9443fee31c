// Package types defines the shared domain types for the dialogue pipeline.
package types

// BaseLanguage is the language the classifier vocabulary and all deterministic
// command responses are produced in. Responses are translated out of it when the
// active profile speaks something else.
const BaseLanguage = "en"

// Profile identifies one conversational persona. It is loaded from the settings
// document at startup and mutated through the session store by command handlers
// (change-language, change-voice). A profile is never destroyed during a session.
type Profile struct {
	Name         string `yaml:"name" json:"name"`
	Gender       string `yaml:"gender" json:"gender"`
	Language     string `yaml:"language" json:"language"`
	Personality  string `yaml:"personality" json:"personality"`
	Description  string `yaml:"description" json:"description"`
	SystemPrompt string `yaml:"system_prompt" json:"system_prompt"`
	Role         string `yaml:"role" json:"role"`
	Model        string `yaml:"model" json:"model"`

	// CommandPackage names the handler bundle loaded into the registry at
	// session start.
	CommandPackage string `yaml:"command_package" json:"command_package"`

	// Speech engine selection.
	TTSEngine        string `yaml:"tts_engine" json:"tts_engine"`
	VoiceID          string `yaml:"voice_id" json:"voice_id"`
	RecognizerEngine string `yaml:"recognizer_engine" json:"recognizer_engine"`
}

// SpeaksBaseLanguage reports whether the profile's active language matches the
// pipeline's base language, in which case responses need no translation.
func (p Profile) SpeaksBaseLanguage() bool {
	return p.Language == "" || p.Language == BaseLanguage
}
