package commands

import (
	"context"

	"github.com/lyra-voice/lyra/pkg/core/types"
)

func (d Deps) mute(ctx context.Context, entities types.Entities) (string, error) {
	if d.Session.Mute() {
		return "I am already muted.", nil
	}
	d.Session.SetMute(true)
	return "Muted. I will keep answering silently.", nil
}

func (d Deps) unmute(ctx context.Context, entities types.Entities) (string, error) {
	if !d.Session.Mute() {
		return "I am not muted.", nil
	}
	d.Session.SetMute(false)
	return "I am back.", nil
}

func (d Deps) stop(ctx context.Context, entities types.Entities) (string, error) {
	d.Session.SetExit(true)
	return "Goodbye.", nil
}

func (d Deps) getTime(ctx context.Context, entities types.Entities) (string, error) {
	return d.now().Format("It is 3:04 PM."), nil
}

func (d Deps) getDate(ctx context.Context, entities types.Entities) (string, error) {
	return d.now().Format("Today is Monday, January 2, 2006."), nil
}
