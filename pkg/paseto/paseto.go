// Package pasetotoken issues and verifies the v4 PASETO access tokens that
// carry a staff member's clinic role.
package pasetotoken

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	paseto "aidanwoods.dev/go-paseto"
	"github.com/google/uuid"

	"github.com/clinicadesk/clinica_backend/config"
)

const (
	claimType    = "typ"
	claimUser    = "uid"
	claimRole    = "role"
	claimSession = "sid"
)

type Config struct {
	Mode      Mode
	Issuer    string
	Audience  string
	AccessTTL time.Duration
	// Implicit assertions bound into every token; both sides must agree.
	Implicit []byte
}

type Manager struct {
	cfg    Config
	keys   Keys
	parser paseto.Parser
}

func New(cfg Config, keys Keys) (*Manager, error) {
	switch {
	case cfg.Mode != keys.Mode:
		return nil, ErrConfig{Msg: "config mode and key mode differ"}
	case cfg.Issuer == "":
		return nil, ErrConfig{Msg: "issuer is required"}
	case cfg.Audience == "":
		return nil, ErrConfig{Msg: "audience is required"}
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}

	p := paseto.NewParser()
	p.AddRule(paseto.IssuedBy(cfg.Issuer))
	p.AddRule(paseto.ForAudience(cfg.Audience))
	p.AddRule(paseto.NotExpired())

	return &Manager{cfg: cfg, keys: keys, parser: p}, nil
}

// NewPasetoManager builds a Manager from authentication.paseto.
func NewPasetoManager(cfg *config.Config) (*Manager, error) {
	pc := cfg.Authentication.Paseto
	keys, err := LoadKeys(KeyStrings{
		Mode:         Mode(pc.Mode),
		SymmetricHex: pc.LocalKeyHex,
		SecretHex:    pc.SecretKeyHex,
		PublicHex:    pc.PublicKeyHex,
	})
	if err != nil {
		return nil, err
	}
	return New(Config{
		Mode:      Mode(pc.Mode),
		Issuer:    pc.Issuer,
		Audience:  pc.Audience,
		AccessTTL: time.Duration(pc.AccessTTLMinutes) * time.Minute,
	}, keys)
}

// IssueAccess mints an access token for a staff member acting in role.
func (m *Manager) IssueAccess(userID uuid.UUID, role string, sessionID *uuid.UUID) (string, error) {
	if role == "" {
		return "", ErrConfig{Msg: "role is required"}
	}

	now := time.Now()
	tok := paseto.NewToken()
	tok.SetIssuer(m.cfg.Issuer)
	tok.SetAudience(m.cfg.Audience)
	tok.SetJti(newTokenID())
	tok.SetSubject(userID.String())
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(now.Add(m.cfg.AccessTTL))
	tok.SetString(claimType, string(TokenTypeAccess))
	tok.SetString(claimUser, userID.String())
	tok.SetString(claimRole, role)
	if sessionID != nil {
		tok.SetString(claimSession, sessionID.String())
	}

	switch {
	case m.cfg.Mode == ModeLocal && m.keys.Symmetric != nil:
		return tok.V4Encrypt(*m.keys.Symmetric, m.cfg.Implicit), nil
	case m.cfg.Mode == ModePublic && m.keys.Secret != nil:
		return tok.V4Sign(*m.keys.Secret, m.cfg.Implicit), nil
	default:
		return "", ErrConfig{Msg: "no key to issue " + string(m.cfg.Mode) + " tokens"}
	}
}

// AccessTTL is how long issued access tokens stay valid.
func (m *Manager) AccessTTL() time.Duration { return m.cfg.AccessTTL }

func (m *Manager) Verify(raw string) (*Claims, error) {
	var (
		tok *paseto.Token
		err error
	)
	switch {
	case m.cfg.Mode == ModeLocal && m.keys.Symmetric != nil:
		tok, err = m.parser.ParseV4Local(*m.keys.Symmetric, raw, m.cfg.Implicit)
	case m.cfg.Mode == ModePublic && m.keys.Public != nil:
		tok, err = m.parser.ParseV4Public(*m.keys.Public, raw, m.cfg.Implicit)
	default:
		return nil, ErrConfig{Msg: "no key to verify " + string(m.cfg.Mode) + " tokens"}
	}
	if err != nil {
		return nil, ErrInvalidToken{Err: err}
	}

	claims, err := readClaims(tok)
	if err != nil {
		return nil, ErrInvalidToken{Err: err}
	}
	claims.Issuer, claims.Audience = m.cfg.Issuer, m.cfg.Audience
	return claims, nil
}

func readClaims(tok *paseto.Token) (*Claims, error) {
	var (
		c   Claims
		err error
	)
	if c.TokenID, err = tok.GetJti(); err != nil {
		return nil, err
	}
	if c.IssuedAt, err = tok.GetIssuedAt(); err != nil {
		return nil, err
	}
	if c.ExpiresAt, err = tok.GetExpiration(); err != nil {
		return nil, err
	}

	typ, err := tok.GetString(claimType)
	if err != nil {
		return nil, err
	}
	c.Type = TokenType(typ)

	if c.Role, err = tok.GetString(claimRole); err != nil {
		return nil, err
	}

	uid, err := tok.GetString(claimUser)
	if err != nil {
		return nil, err
	}
	if c.UserID, err = uuid.Parse(uid); err != nil {
		return nil, err
	}

	// The session claim is optional; a malformed one is not.
	if sid, err := tok.GetString(claimSession); err == nil {
		parsed, err := uuid.Parse(sid)
		if err != nil {
			return nil, err
		}
		c.SessionID = &parsed
	}
	return &c, nil
}

func newTokenID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
