package model

import "strings"

// UserID is a stable account id, or a per-connection id for anonymous users
type UserID string

// AnonymousPrefix marks user ids derived from a connection rather than an account
const AnonymousPrefix = "anon-"

// DraftUser is a participant known to a session
type DraftUser struct {
	ID            UserID `json:"id"`
	DisplayName   string `json:"display_name"`
	Discriminator string `json:"discriminator,omitempty"`
	Present       bool   `json:"present"`
}

// IsAnonymous reports whether the id was derived from a connection
func (u DraftUser) IsAnonymous() bool {
	return strings.HasPrefix(string(u.ID), AnonymousPrefix)
}

// Identity is a resolved caller: the user plus any roles granted by the account system
type Identity struct {
	User  DraftUser
	Roles []string
}

// RoleOrganizer may create server-provided drafts with fixed rosters
const RoleOrganizer = "organizer"

// HasRole reports whether the identity carries the given role
func (i Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}
