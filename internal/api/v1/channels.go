package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/beacon/internal/channel"
	"github.com/gosuda/beacon/internal/server/middleware"
)

type AuthorizeChannelInput struct {
	Channel string `query:"channel" required:"true" doc:"Private channel name"`
}

type AuthorizeChannelOutput struct {
	Body struct {
		Channel    string `json:"channel"`
		Authorized bool   `json:"authorized"`
	}
}

func RegisterChannelRoutes(api huma.API, authorizer ChannelAuthorizer) {
	huma.Register(api, huma.Operation{
		OperationID: "authorize-channel",
		Method:      http.MethodGet,
		Path:        "/channels/authorize",
		Summary:     "Check whether the caller may subscribe to a channel",
		Tags:        []string{"Channels"},
	}, func(ctx context.Context, input *AuthorizeChannelInput) (*AuthorizeChannelOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("missing user context")
		}

		out := &AuthorizeChannelOutput{}
		out.Body.Channel = input.Channel

		ch, err := channel.Parse(input.Channel)
		if err != nil {
			return out, nil
		}

		allowed, err := authorizer.Authorize(ctx, userID, ch)
		if err != nil {
			// Lookup failures refuse rather than fail the request.
			log.Error().Err(err).Int64("user_id", userID).Str("channel", input.Channel).Msg("authorize channel")
		}
		out.Body.Authorized = allowed && err == nil

		return out, nil
	})
}
