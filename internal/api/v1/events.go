package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/beacon/internal/domain"
	"github.com/gosuda/beacon/internal/ingest"
)

type IngestEventInput struct {
	Body struct {
		Event          string `json:"event" minLength:"1" doc:"Event name, e.g. message.sent"`
		SubjectID      int64  `json:"subject_id" minimum:"1" doc:"ID of the mutated entity"`
		ActorID        int64  `json:"actor_id,omitempty" doc:"User who performed the mutation"`
		SocketID       string `json:"socket_id,omitempty" doc:"Originating connection, excluded from delivery"`
		AffectedUserID int64  `json:"affected_user_id,omitempty" doc:"Member or participant the mutation is about"`
		Emoji          string `json:"emoji,omitempty" doc:"Reaction emoji for comment.reaction"`
		Action         string `json:"action,omitempty" doc:"Project action for project.updated"`
	}
}

type IngestEventResponse struct {
	Event    string   `json:"event"`
	Channels []string `json:"channels"`
}

type IngestEventOutput struct {
	Body IngestEventResponse
}

// RegisterEventRoutes registers the ingestion endpoint the host application
// calls after each committed mutation. Delivery is best effort: the response
// is 202 even when the broker is unavailable.
func RegisterEventRoutes(api huma.API, resolver EventResolver, broadcaster Broadcaster) {
	huma.Register(api, huma.Operation{
		OperationID:   "ingest-event",
		Method:        http.MethodPost,
		Path:          "/events",
		Summary:       "Broadcast a committed mutation",
		Tags:          []string{"Events"},
		DefaultStatus: http.StatusAccepted,
	}, func(ctx context.Context, input *IngestEventInput) (*IngestEventOutput, error) {
		m, err := resolver.Resolve(ctx, ingest.Request{
			Event:          input.Body.Event,
			SubjectID:      input.Body.SubjectID,
			ActorID:        input.Body.ActorID,
			SocketID:       input.Body.SocketID,
			AffectedUserID: input.Body.AffectedUserID,
			Emoji:          input.Body.Emoji,
			Action:         input.Body.Action,
		})
		switch {
		case err == nil:
		case errors.Is(err, ingest.ErrUnknownEvent), errors.Is(err, ingest.ErrInvalidRequest):
			return nil, huma.Error422UnprocessableEntity(err.Error())
		case errors.Is(err, domain.ErrNotFound):
			return nil, huma.Error404NotFound("subject not found")
		default:
			return nil, huma.Error500InternalServerError("failed to resolve event", err)
		}

		delivery := broadcaster.Broadcast(ctx, m)
		if delivery.Event.Name == "" {
			// Nothing was planned: the mutation could not be encoded or routed.
			return nil, huma.Error422UnprocessableEntity("event could not be encoded")
		}

		channels := delivery.ChannelNames()
		if channels == nil {
			channels = []string{}
		}

		return &IngestEventOutput{Body: IngestEventResponse{Event: delivery.Event.Name, Channels: channels}}, nil
	})
}
