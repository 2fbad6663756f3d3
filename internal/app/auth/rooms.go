package auth

import (
	"cmp"
	"slices"

	"github.com/dkeye/castlink/internal/domain"
)

type roomNode struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type roomRef struct {
	Room roomNode `json:"liveroomByRoomId"`
}

type roomsResponse struct {
	Data struct {
		CurrentProfile struct {
			Rooms struct {
				Nodes []roomNode `json:"nodes"`
			} `json:"rooms"`
			Invites struct {
				Nodes []roomRef `json:"nodes"`
			} `json:"invites"`
			RecentRooms struct {
				Nodes []roomRef `json:"nodes"`
			} `json:"recentRooms"`
		} `json:"currentProfile"`
	} `json:"data"`
}

func parseRooms(body []byte) (domain.Rooms, error) {
	var res roomsResponse
	if err := decode(body, &res); err != nil {
		return domain.Rooms{}, err
	}
	p := res.Data.CurrentProfile

	invited := make([]roomNode, 0, len(p.Invites.Nodes))
	for _, n := range p.Invites.Nodes {
		invited = append(invited, n.Room)
	}
	recent := make([]roomNode, 0, len(p.RecentRooms.Nodes))
	for _, n := range p.RecentRooms.Nodes {
		recent = append(recent, n.Room)
	}
	return mergeRooms(p.Rooms.Nodes, invited, recent), nil
}

// mergeRooms keeps the first entry seen for each id, so earlier sources
// win, then orders the result by name.
func mergeRooms(sources ...[]roomNode) domain.Rooms {
	seen := make(map[string]struct{})
	var out []domain.Room
	for _, src := range sources {
		for _, n := range src {
			if n.ID == "" || n.DisplayName == "" {
				continue
			}
			if _, ok := seen[n.ID]; ok {
				continue
			}
			seen[n.ID] = struct{}{}
			out = append(out, domain.Room{ID: domain.RoomID(n.ID), Name: n.DisplayName})
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Room) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return domain.Rooms{Ordered: out}
}
