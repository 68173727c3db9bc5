package system

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/clinicadesk/clinica_backend/config"
	"github.com/clinicadesk/clinica_backend/internal/api/http/middleware"
	"github.com/clinicadesk/clinica_backend/pkg/authorize"
	pasetotoken "github.com/clinicadesk/clinica_backend/pkg/paseto"
	redispkg "github.com/clinicadesk/clinica_backend/pkg/redis"
)

// NewTokenCommand issues an access token for operators and integrations.
// Accounts live outside this service, so this is the only way to mint one.
func NewTokenCommand() *cobra.Command {
	var (
		role    string
		userID  string
		session bool
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a PASETO access token for a role",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !authorize.IsKnownRole(authorize.Role(role)) {
				return fmt.Errorf("unknown role %q", role)
			}
			uid := uuid.New()
			if userID != "" {
				parsed, err := uuid.Parse(userID)
				if err != nil {
					return fmt.Errorf("invalid --user-id: %w", err)
				}
				uid = parsed
			}

			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			mgr, err := pasetotoken.NewPasetoManager(cfg)
			if err != nil {
				return err
			}

			var sessionID *uuid.UUID
			if session || cfg.Authentication.RequireSession {
				sid := uuid.New()
				sessionID = &sid
				if err := storeSession(cmd.Context(), cfg, sid, mgr.AccessTTL()); err != nil {
					return err
				}
			}

			tok, err := mgr.IssueAccess(uid, role, sessionID)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			fmt.Println(tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", string(authorize.RoleReception), "Role embedded in the token")
	cmd.Flags().StringVar(&userID, "user-id", "", "Subject user id (random when empty)")
	cmd.Flags().BoolVar(&session, "session", false, "Register a Redis session for the token")

	return cmd
}

func storeSession(ctx context.Context, cfg *config.Config, id uuid.UUID, ttl time.Duration) error {
	rdb, err := redispkg.NewRedisFromCentral(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()
	if err := rdb.Set(ctx, middleware.SessionKey(id.String()), "1", ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}
