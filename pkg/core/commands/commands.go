// Package commands implements the builtin command handler bundles.
//
// Handlers own entity extraction: an absent slot degrades to a clarifying
// question, and a downstream service problem degrades to a command-specific
// apology. Only genuinely unexpected failures surface as errors, which the
// dispatcher converts to its generic apology.
package commands

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lyra-voice/lyra/pkg/core/registry"
	"github.com/lyra-voice/lyra/pkg/core/schedule"
	"github.com/lyra-voice/lyra/pkg/core/types"
)

// Intent names in the classifier vocabulary.
const (
	IntentGetWeather     = "Get_Weather"
	IntentGetNews        = "Get_News"
	IntentPlayMusic      = "Play_Music"
	IntentGetTime        = "Get_Time"
	IntentGetDate        = "Get_Date"
	IntentTellJoke       = "Tell_Joke"
	IntentSetAlarm       = "Set_Alarm"
	IntentSetReminder    = "Set_Reminder"
	IntentSetTimer       = "Set_Timer"
	IntentChangeLanguage = "Change_Language" // one-shot translation
	IntentSetLanguage    = "Set_Language"    // persistent language change
	IntentChangeVoice    = "Change_Voice"
	IntentMute           = "Mute"
	IntentUnmute         = "Unmute"
	IntentStop           = "Stop"
	IntentAskGPT         = "Ask_GPT"
)

// SessionStore is the slice of the session store handlers mutate.
type SessionStore interface {
	Profile() types.Profile
	Mute() bool
	SetMute(bool)
	SetExit(bool)
	SetReconfigureRecognizer(bool)
	SetReconfigureVerbalizer(bool)
	BeginLanguageOverride(temporary string)
	SetProfileProperty(name, value string) error
}

// Translator is the slice of the translation collaborator handlers use.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) string
	Supported(language string) bool
}

// External lookup collaborators. Implementations live outside this module;
// tests supply fakes.
type (
	// WeatherService reports current conditions for a location.
	WeatherService interface {
		Current(ctx context.Context, location string) (string, error)
	}
	// NewsService returns current headlines.
	NewsService interface {
		Headlines(ctx context.Context) ([]string, error)
	}
	// MusicService starts playback for a query and describes what it did.
	MusicService interface {
		Play(ctx context.Context, query string) (string, error)
	}
	// JokeService tells one joke.
	JokeService interface {
		Joke(ctx context.Context) (string, error)
	}
)

// Deps carries everything the builtin handlers need.
type Deps struct {
	Session    SessionStore
	Translator Translator
	Scheduler  *schedule.Scheduler

	// Announce delivers a scheduler-fired message to the turn loop, the same
	// way a handler response would be spoken.
	Announce func(text string)

	Weather WeatherService
	News    NewsService
	Music   MusicService
	Jokes   JokeService

	Clock  func() time.Time
	Logger zerolog.Logger
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

// Table builds the full intent-to-handler table the registry binds package
// manifests against.
func Table(d Deps) map[string]registry.Handler {
	return map[string]registry.Handler{
		IntentGetWeather:     d.getWeather,
		IntentGetNews:        d.getNews,
		IntentPlayMusic:      d.playMusic,
		IntentGetTime:        d.getTime,
		IntentGetDate:        d.getDate,
		IntentTellJoke:       d.tellJoke,
		IntentSetAlarm:       d.setAlarm,
		IntentSetReminder:    d.setReminder,
		IntentSetTimer:       d.setTimer,
		IntentChangeLanguage: d.changeLanguage,
		IntentSetLanguage:    d.setLanguage,
		IntentChangeVoice:    d.changeVoice,
		IntentMute:           d.mute,
		IntentUnmute:         d.unmute,
		IntentStop:           d.stop,
	}
}
