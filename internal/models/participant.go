package models

// Participant is the display metadata of a conversation counterpart, as served
// by the user profile service.
type Participant struct {
	ID          int    `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Headline    string `json:"headline,omitempty"`
}

// Account identifies the authenticated local user.
type Account struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}
