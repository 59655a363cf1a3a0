package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/beacon/internal/api/v1"
	"github.com/gosuda/beacon/internal/api/ws"
)

func registerIngestRoutes(api huma.API, resolver v1.EventResolver, broadcaster v1.Broadcaster) {
	v1.RegisterEventRoutes(api, resolver, broadcaster)
}

func registerAPIRoutes(api huma.API, authorizer v1.ChannelAuthorizer) {
	v1.RegisterChannelRoutes(api, authorizer)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/", hub.ServeWS)
}
