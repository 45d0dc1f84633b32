package legal

import (
	"time"

	"github.com/lawdesk/lawdesk-client/pkg/client"
)

// Resource services.
type (
	Cases    = Resource[Case, CreateCase, UpdateCase, CaseSearch]
	Clients  = Resource[Client, CreateClient, UpdateClient, ClientSearch]
	Courts   = Resource[Court, CreateCourt, UpdateCourt, CourtSearch]
	Sessions = Resource[Session, CreateSession, UpdateSession, SessionSearch]
)

// NewCases creates the case service. Cases cannot be restored.
func NewCases(api *client.Client) *Cases {
	return newResource[Case, CreateCase, UpdateCase](api, resourceConfig[CaseSearch]{
		name:    "cases",
		path:    "/cases",
		listTTL: 2 * time.Minute,
		getTTL:  5 * time.Minute,
		withPage: func(s CaseSearch, page, pageSize int) CaseSearch {
			s.Page, s.PageSize = page, orKeep(pageSize, s.PageSize)
			return s
		},
	})
}

// NewClients creates the client service.
func NewClients(api *client.Client) *Clients {
	return newResource[Client, CreateClient, UpdateClient](api, resourceConfig[ClientSearch]{
		name:       "clients",
		path:       "/clients",
		listTTL:    3 * time.Minute,
		getTTL:     5 * time.Minute,
		restorable: true,
		withPage: func(s ClientSearch, page, pageSize int) ClientSearch {
			s.Page, s.PageSize = page, orKeep(pageSize, s.PageSize)
			return s
		},
	})
}

// NewCourts creates the court service. Courts rarely change and are cached
// longest.
func NewCourts(api *client.Client) *Courts {
	return newResource[Court, CreateCourt, UpdateCourt](api, resourceConfig[CourtSearch]{
		name:       "courts",
		path:       "/courts",
		listTTL:    10 * time.Minute,
		getTTL:     15 * time.Minute,
		restorable: true,
		withPage: func(s CourtSearch, page, pageSize int) CourtSearch {
			s.Page, s.PageSize = page, orKeep(pageSize, s.PageSize)
			return s
		},
	})
}

// NewSessions creates the session service.
func NewSessions(api *client.Client) *Sessions {
	return newResource[Session, CreateSession, UpdateSession](api, resourceConfig[SessionSearch]{
		name:       "sessions",
		path:       "/sessions",
		listTTL:    time.Minute,
		getTTL:     3 * time.Minute,
		restorable: true,
		withPage: func(s SessionSearch, page, pageSize int) SessionSearch {
			s.Page, s.PageSize = page, orKeep(pageSize, s.PageSize)
			return s
		},
	})
}

func orKeep(v, current int) int {
	if v > 0 {
		return v
	}
	return current
}

// Services bundles every resource service over one client.
type Services struct {
	Cases    *Cases
	Clients  *Clients
	Courts   *Courts
	Sessions *Sessions
	Chat     *ChatService
}

// New creates all services on top of api.
func New(api *client.Client) *Services {
	return &Services{
		Cases:    NewCases(api),
		Clients:  NewClients(api),
		Courts:   NewCourts(api),
		Sessions: NewSessions(api),
		Chat:     NewChatService(api),
	}
}
