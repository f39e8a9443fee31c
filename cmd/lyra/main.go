// Command lyra runs the voice assistant: it listens on the microphone,
// classifies each utterance, dispatches it to a command handler or the
// generative responder, and speaks the result.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lyra-voice/lyra/internal/dotenv"
	"github.com/lyra-voice/lyra/pkg/core/commands"
	"github.com/lyra-voice/lyra/pkg/core/dispatch"
	"github.com/lyra-voice/lyra/pkg/core/fallback"
	"github.com/lyra-voice/lyra/pkg/core/history"
	"github.com/lyra-voice/lyra/pkg/core/nlu"
	"github.com/lyra-voice/lyra/pkg/core/registry"
	"github.com/lyra-voice/lyra/pkg/core/schedule"
	"github.com/lyra-voice/lyra/pkg/core/session"
	"github.com/lyra-voice/lyra/pkg/core/translate"
	"github.com/lyra-voice/lyra/pkg/core/turn"
	"github.com/lyra-voice/lyra/pkg/core/types"
	"github.com/lyra-voice/lyra/pkg/core/voice"
	"github.com/lyra-voice/lyra/pkg/core/voice/stt"
	"github.com/lyra-voice/lyra/pkg/core/voice/tts"
)

type options struct {
	settingsPath string
	historyPath  string
	logLevel     string
	timeout      time.Duration
}

func main() {
	opts := options{}

	root := &cobra.Command{
		Use:           "lyra",
		Short:         "Voice assistant session",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	root.Flags().StringVar(&opts.settingsPath, "settings", envOr("LYRA_SETTINGS", "lyra.yaml"), "settings document path")
	root.Flags().StringVar(&opts.historyPath, "history", envOr("LYRA_HISTORY_DB", "lyra-history.db"), "conversation log path")
	root.Flags().StringVar(&opts.logLevel, "log-level", envOr("LYRA_LOG_LEVEL", "info"), "log level (trace..error)")
	root.Flags().DurationVar(&opts.timeout, "inactivity-timeout", turn.DefaultInactivityTimeout, "terminate after this much silence")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "lyra:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	if err := dotenv.Load(); err != nil {
		return err
	}
	logger, err := newLogger(opts.logLevel)
	if err != nil {
		return err
	}

	settings := session.OpenSettings(opts.settingsPath, logger)
	doc, err := settings.Load()
	if err != nil {
		return err
	}
	store := session.FromDocument(doc,
		session.WithPersist(settings.Save),
		session.WithLogger(logger))
	profile := store.Profile()

	hist, err := history.Open(opts.historyPath)
	if err != nil {
		return err
	}
	defer hist.Close()

	sched := schedule.New(schedule.WithLogger(logger))
	defer sched.Close()

	translator := translate.NewClient(
		envOr("LYRA_TRANSLATE_URL", "http://localhost:7002"),
		os.Getenv("LYRA_TRANSLATE_KEY"),
		translate.WithLogger(logger))
	classifier := nlu.NewClient(
		envOr("LYRA_NLU_URL", "http://localhost:7001"),
		os.Getenv("LYRA_NLU_KEY"))

	completer, err := fallback.NewGeminiCompleter(ctx, os.Getenv("GEMINI_API_KEY"))
	if err != nil {
		return fmt.Errorf("gemini client: %w", err)
	}
	responder := fallback.New(completer, store,
		fallback.WithHistory(hist),
		fallback.WithLogger(logger))

	recognizer, verbalizer, err := buildSpeech(profile, logger)
	if err != nil {
		return err
	}

	// The announce closure is bound before the controller exists; handlers
	// only run once the controller is listening.
	var controller *turn.Controller
	deps := commands.Deps{
		Session:    store,
		Translator: translator,
		Scheduler:  sched,
		Announce:   func(text string) { controller.Announce(text) },
		Logger:     logger,
	}
	reg, err := registry.Load(profile.CommandPackage, commands.Table(deps))
	if err != nil {
		return err
	}
	logger.Info().Str("package", reg.Package()).Int("intents", reg.Len()).Msg("command registry loaded")

	dispatcher := dispatch.New(reg, responder, translator, store,
		dispatch.WithTranslateIntent(commands.IntentChangeLanguage),
		dispatch.WithLogger(logger))

	controller = turn.New(store, recognizer, verbalizer, classifier, dispatcher, translator,
		turn.WithHistory(hist),
		turn.WithInactivityTimeout(opts.timeout),
		turn.WithLogger(logger))

	// Pick up edits made to the settings file while the session runs.
	stopWatch, err := settings.Watch(store.Reload)
	if err != nil {
		logger.Warn().Err(err).Msg("settings watcher unavailable")
	} else {
		defer stopWatch()
	}

	err = controller.Run(ctx)
	if errors.Is(err, turn.ErrInactivityTimeout) {
		logger.Info().Msg("session ended after prolonged silence")
		return nil
	}
	return err
}

// buildSpeech assembles the recognizer and verbalizer from the profile's
// engine selections.
func buildSpeech(profile types.Profile, logger zerolog.Logger) (*voice.Recognizer, *voice.Verbalizer, error) {
	cartesiaKey := os.Getenv("CARTESIA_API_KEY")

	var sttProvider stt.Provider
	switch profile.RecognizerEngine {
	case "", "cartesia":
		sttProvider = stt.NewCartesia(cartesiaKey)
	default:
		return nil, nil, fmt.Errorf("unsupported recognizer engine %q", profile.RecognizerEngine)
	}

	var ttsProvider tts.Provider
	switch profile.TTSEngine {
	case "", "cartesia":
		ttsProvider = tts.NewCartesia(cartesiaKey)
	case "elevenlabs":
		ttsProvider = tts.NewElevenLabs(os.Getenv("ELEVENLABS_API_KEY"))
	default:
		return nil, nil, fmt.Errorf("unsupported tts engine %q", profile.TTSEngine)
	}

	sink, err := voice.NewFFplaySink()
	if err != nil {
		return nil, nil, err
	}
	mic := voice.FFmpegMicSource(16000)

	recognizer := voice.NewRecognizer(sttProvider, mic, profile.Language,
		voice.WithRecognizerLogger(logger))
	verbalizer := voice.NewVerbalizer(ttsProvider, sink, profile.VoiceID, profile.Language,
		voice.WithVerbalizerLogger(logger))
	return recognizer, verbalizer, nil
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse log level %q: %w", level, err)
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger(), nil
}

func envOr(key, fallbackValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallbackValue
}
