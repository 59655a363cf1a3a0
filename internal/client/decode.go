package client

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// decode unmarshals an event payload, logging and reporting false when the
// payload does not fit T.
func decode[T any](e Event) (T, bool) {
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		log.Warn().Err(err).Str("event", e.Name).Str("channel", e.Channel).Msg("client: undecodable payload")
		return v, false
	}
	return v, true
}
