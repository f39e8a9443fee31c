package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/lyra-voice/lyra/pkg/core/types"
)

// Entity slots filled by the classifier.
const (
	slotWeatherLocation = "weather_location"
	slotSong            = "song"
	slotArtist          = "artist"
)

func (d Deps) getWeather(ctx context.Context, entities types.Entities) (string, error) {
	location := entities.First(slotWeatherLocation)
	if location == "" {
		return "Which city do you want the weather for?", nil
	}
	if d.Weather == nil {
		return "Weather lookups are not set up on this device.", nil
	}
	report, err := d.Weather.Current(ctx, location)
	if err != nil {
		d.Logger.Warn().Err(err).Str("location", location).Msg("weather lookup failed")
		return fmt.Sprintf("I couldn't get the weather for %s right now.", location), nil
	}
	return report, nil
}

func (d Deps) getNews(ctx context.Context, entities types.Entities) (string, error) {
	if d.News == nil {
		return "News lookups are not set up on this device.", nil
	}
	headlines, err := d.News.Headlines(ctx)
	if err != nil || len(headlines) == 0 {
		if err != nil {
			d.Logger.Warn().Err(err).Msg("news lookup failed")
		}
		return "I couldn't fetch the news right now.", nil
	}
	if len(headlines) > 3 {
		headlines = headlines[:3]
	}
	return "Here are the top headlines. " + strings.Join(headlines, " Next: "), nil
}

func (d Deps) playMusic(ctx context.Context, entities types.Entities) (string, error) {
	song := entities.First(slotSong)
	artist := entities.First(slotArtist)
	if song == "" && artist == "" {
		return "What would you like to hear?", nil
	}
	if d.Music == nil {
		return "Music playback is not set up on this device.", nil
	}
	query := song
	if artist != "" {
		if query != "" {
			query += " by " + artist
		} else {
			query = artist
		}
	}
	status, err := d.Music.Play(ctx, query)
	if err != nil {
		d.Logger.Warn().Err(err).Str("query", query).Msg("music playback failed")
		return fmt.Sprintf("I couldn't play %s right now.", query), nil
	}
	return status, nil
}

// builtinJokes covers the case where no joke collaborator is configured.
var builtinJokes = []string{
	"I would tell you a UDP joke, but you might not get it.",
	"There are only two hard things in computer science: cache invalidation, naming things, and off-by-one errors.",
	"I asked the smart fridge for a joke. It gave me the cold shoulder.",
}

func (d Deps) tellJoke(ctx context.Context, entities types.Entities) (string, error) {
	if d.Jokes != nil {
		joke, err := d.Jokes.Joke(ctx)
		if err == nil && joke != "" {
			return joke, nil
		}
		if err != nil {
			d.Logger.Warn().Err(err).Msg("joke lookup failed")
		}
	}
	return builtinJokes[d.now().UnixNano()%int64(len(builtinJokes))], nil
}
