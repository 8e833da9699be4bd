package service

import "github.com/Skotchmaster/community_shop/internal/models"

// Identity is the authenticated caller as established by the access token.
type Identity struct {
	UserID    uint
	Username  string
	Role      string
	SessionID string
}

func (i Identity) IsAdmin() bool { return i.Role == models.RoleAdmin }
