package types

import "time"

// Turn bundles one recognized utterance with the response produced for it.
// Turns are ephemeral; they exist only to be appended to the conversation log
// and to seed the fallback responder's context window.
type Turn struct {
	ID        string `json:"id"`
	Utterance string `json:"utterance"`
	Response  string `json:"response"`

	// Fallback is true when the generative responder produced the response
	// instead of a registered command handler.
	Fallback bool `json:"fallback"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
