package pasetotoken

import (
	"time"

	"github.com/google/uuid"
)

type TokenType string

const TokenTypeAccess TokenType = "access"

// Claims is what a verified token says about the caller. It satisfies
// reqctx.AuthClaims.
type Claims struct {
	Type      TokenType
	UserID    uuid.UUID
	Role      string
	SessionID *uuid.UUID

	TokenID   string
	Issuer    string
	Audience  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (c *Claims) GetUserID() uuid.UUID     { return c.UserID }
func (c *Claims) GetRole() string          { return c.Role }
func (c *Claims) GetSessionID() *uuid.UUID { return c.SessionID }
func (c *Claims) GetTokenType() string     { return string(c.Type) }
func (c *Claims) IsExpired() bool          { return time.Now().After(c.ExpiresAt) }
