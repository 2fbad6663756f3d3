// Package domain contains entity without logic, just meta-data
package domain

// Credentials is what the user typed into the login form.
// TrackingID survives a logout, Password does not.
type Credentials struct {
	Email      string `json:"email"`
	Password   string `json:"-"`
	TrackingID string `json:"tracking_id"`
}

// Token is the jwt/nonce pair issued by the login mutation.
type Token struct {
	Token string `json:"-"`
	Nonce string `json:"-"`
}

// Empty reports whether the token is unusable. A nonce alone is not a token.
func (t Token) Empty() bool { return t.Token == "" }

type RoomID string

type Room struct {
	ID   RoomID `json:"id"`
	Name string `json:"name"`
}

// Rooms is ordered by name and holds each id once.
type Rooms struct {
	Ordered []Room `json:"rooms"`
}

func (r Rooms) Len() int { return len(r.Ordered) }
