package commands

import (
	"context"
	"fmt"

	"github.com/lyra-voice/lyra/pkg/core/session"
	"github.com/lyra-voice/lyra/pkg/core/translate"
	"github.com/lyra-voice/lyra/pkg/core/types"
)

const (
	slotLanguage = "language"
	slotPhrase   = "phrase"
	slotVoice    = "voice_name"
)

// changeLanguage performs a one-shot translation: the profile switches to the
// target language just long enough for the response to be spoken once, then
// the turn controller reverts it. The response is produced in the target
// language here, which is why the dispatcher must not translate it again.
func (d Deps) changeLanguage(ctx context.Context, entities types.Entities) (string, error) {
	ref := entities.First(slotLanguage)
	if ref == "" {
		return "Which language should I use?", nil
	}
	code, ok := translate.LanguageCode(ref)
	if !ok || !d.Translator.Supported(code) {
		return fmt.Sprintf("I can't speak %s yet.", ref), nil
	}

	d.Session.BeginLanguageOverride(code)
	d.Session.SetReconfigureVerbalizer(true)

	text := entities.First(slotPhrase)
	if text == "" {
		name, _ := translate.LanguageName(code)
		text = fmt.Sprintf("This is how I sound in %s.", name)
	}
	return d.Translator.Translate(ctx, text, types.BaseLanguage, code), nil
}

// setLanguage changes the profile language permanently. Both speech engines
// are flagged for rebuild; the confirmation itself goes through the
// dispatcher's auto-translation like any other deterministic response.
func (d Deps) setLanguage(ctx context.Context, entities types.Entities) (string, error) {
	ref := entities.First(slotLanguage)
	if ref == "" {
		return "Which language should I switch to?", nil
	}
	code, ok := translate.LanguageCode(ref)
	if !ok || !d.Translator.Supported(code) {
		return fmt.Sprintf("I can't speak %s yet.", ref), nil
	}

	if err := d.Session.SetProfileProperty(session.PropLanguage, code); err != nil {
		return "", err
	}
	d.Session.SetReconfigureRecognizer(true)
	d.Session.SetReconfigureVerbalizer(true)

	name, _ := translate.LanguageName(code)
	return fmt.Sprintf("From now on I will speak %s.", name), nil
}

// changeVoice switches the synthesis voice and flags the verbalizer for
// rebuild so the confirmation is already spoken with the new voice.
func (d Deps) changeVoice(ctx context.Context, entities types.Entities) (string, error) {
	voice := entities.First(slotVoice)
	if voice == "" {
		return "Which voice would you like?", nil
	}
	if err := d.Session.SetProfileProperty(session.PropVoiceID, voice); err != nil {
		return "", err
	}
	d.Session.SetReconfigureVerbalizer(true)
	return "How do I sound now?", nil
}
