// Package graphql holds the request documents the credential machine sends.
package graphql

import (
	"github.com/dkeye/castlink/internal/core"
	"github.com/dkeye/castlink/internal/domain"
)

const loginMutation = `mutation authenticateMutation($input: AuthenticateInput!) {
  authenticate(input: $input) {
    clientMutationId
  }
}`

const createStreamKeyMutation = `mutation CreateStreamKeyMutation($input: CreateStreamKeyInput!) {
  createStreamKey(input: $input) {
    uuid
  }
}`

const getStreamKeyMutation = `mutation getStreamKeyMutation($input: GetStreamKeyInput!) {
  getStreamKey(input: $input) {
    uuid
  }
}`

const roomsQuery = `query homeQuery {
  currentProfile {
    ...Home_currentProfile
  }
  canCreateRoom
}

fragment Home_currentProfile on Profile {
  rooms: liveroomsByCreatorId(first: 100, orderBy: [CREATED_AT_DESC]) {
    nodes {
      id
      hash
      createdAt
      deletedAt
      ...RoomCard_room
    }
  }
  invites: invitesByProfileId(first: 100, orderBy: [CREATED_AT_DESC]) {
    nodes {
      liveroomByRoomId {
        id
        createdAt
        deletedAt
        ...RoomCard_room
        profileByCreatorId {
          displayName
        }
      }
    }
  }
  recentRooms: joinedRoomsByProfileId(first: 100, orderBy: [JOINED_AT_DESC]) {
    nodes {
      joinedAt
      liveroomByRoomId {
        id
        createdAt
        deletedAt
        ...RoomCard_room
      }
    }
  }
}

fragment RoomCard_room on Liveroom {
  id
  hash
  displayName
  creatorId
  createdAt
  sessionCount
  noteCount
}`

// Builder implements core.QueryBuilder.
type Builder struct{}

var _ core.QueryBuilder = Builder{}

func (Builder) Login(c domain.Credentials) core.Query {
	return core.Query{
		Query: loginMutation,
		Variables: map[string]any{
			"input": map[string]any{
				"email":      c.Email,
				"password":   c.Password,
				"trackingId": c.TrackingID,
			},
		},
	}
}

func (Builder) CreateStreamKey() core.Query {
	return core.Query{Query: createStreamKeyMutation, Variables: emptyInput()}
}

func (Builder) GetStreamKey() core.Query {
	return core.Query{Query: getStreamKeyMutation, Variables: emptyInput()}
}

func (Builder) ListRooms() core.Query {
	return core.Query{Query: roomsQuery}
}

func emptyInput() map[string]any {
	return map[string]any{"input": map[string]any{}}
}
