package auth

import (
	"testing"

	"github.com/dkeye/castlink/internal/domain"
)

func TestMergeRooms_FirstSourceWins(t *testing.T) {
	owned := []roomNode{{ID: "r1", DisplayName: "Zulu"}, {ID: "r2", DisplayName: "Alpha"}}
	invited := []roomNode{{ID: "r1", DisplayName: "Invited name"}, {ID: "r3", DisplayName: "Mike"}}
	recent := []roomNode{{ID: "r1", DisplayName: "Recent name"}, {ID: "r3", DisplayName: "Other"}, {ID: "", DisplayName: "no id"}, {ID: "r4"}}

	got := mergeRooms(owned, invited, recent)
	want := []domain.Room{
		{ID: "r2", Name: "Alpha"},
		{ID: "r3", Name: "Mike"},
		{ID: "r1", Name: "Zulu"},
	}
	if len(got.Ordered) != len(want) {
		t.Fatalf("got %d rooms, want %d: %+v", len(got.Ordered), len(want), got.Ordered)
	}
	for i := range want {
		if got.Ordered[i] != want[i] {
			t.Errorf("room[%d] = %+v, want %+v", i, got.Ordered[i], want[i])
		}
	}
}

func TestParseRooms(t *testing.T) {
	body := []byte(`{"data":{"canCreateRoom":true,"currentProfile":{
		"rooms":{"nodes":[{"id":"a","hash":"h","displayName":"Beta"}]},
		"invites":{"nodes":[{"liveroomByRoomId":{"id":"a","displayName":"Invite Beta","profileByCreatorId":{"displayName":"x"}}},
		                    {"liveroomByRoomId":{"id":"b","displayName":"Alpha"}}]},
		"recentRooms":{"nodes":[{"joinedAt":"2024-01-01","liveroomByRoomId":{"id":"c","displayName":"Gamma"}}]}
	}}}`)

	rooms, err := parseRooms(body)
	if err != nil {
		t.Fatalf("parseRooms() error = %v", err)
	}
	names := []string{}
	for _, r := range rooms.Ordered {
		names = append(names, r.Name)
	}
	want := []string{"Alpha", "Beta", "Gamma"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names = %v, want %v", names, want)
			break
		}
	}
}

func TestParseRooms_Malformed(t *testing.T) {
	if _, err := parseRooms([]byte("not json")); err == nil {
		t.Fatal("parseRooms() expected error for malformed body")
	}
	rooms, err := parseRooms([]byte(`{"data":{"currentProfile":null}}`))
	if err != nil {
		t.Fatalf("parseRooms() error = %v", err)
	}
	if rooms.Len() != 0 {
		t.Errorf("Len() = %d, want 0", rooms.Len())
	}
}
