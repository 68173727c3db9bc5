package authorize

import (
	"context"
	"log/slog"
	"time"
)

// AuditedAuthorization wraps an IAuthorization implementation with audit logging.
type AuditedAuthorization struct {
	inner  IAuthorization
	logger *slog.Logger
}

func NewAuditedAuthorization(inner IAuthorization, logger *slog.Logger) IAuthorization {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditedAuthorization{
		inner:  inner,
		logger: logger,
	}
}

func (a *AuditedAuthorization) Enforce(ctx context.Context, role Role, object Resource, action Action) (bool, error) {
	start := time.Now()
	allowed, err := a.inner.Enforce(ctx, role, object, action)
	duration := time.Since(start)

	attrs := []any{
		"role", string(role),
		"resource", string(object),
		"action", string(action),
		"allowed", allowed,
		"duration_ms", duration.Milliseconds(),
	}

	if err != nil {
		attrs = append(attrs, "error", err.Error())
		a.logger.ErrorContext(ctx, "authz_decision", attrs...)
	} else if allowed {
		a.logger.DebugContext(ctx, "authz_decision", attrs...)
	} else {
		a.logger.WarnContext(ctx, "authz_decision", attrs...)
	}

	return allowed, err
}

func (a *AuditedAuthorization) MustEnforce(ctx context.Context, role Role, object Resource, action Action) error {
	ok, err := a.Enforce(ctx, role, object, action)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (a *AuditedAuthorization) AddPermission(ctx context.Context, p PermissionPolicy) (bool, error) {
	added, err := a.inner.AddPermission(ctx, p)

	attrs := []any{
		"operation", "add_permission",
		"role", string(p.Role),
		"resource", string(p.Resource),
		"action", string(p.Action),
		"effect", string(p.Effect),
		"added", added,
	}

	if err != nil {
		attrs = append(attrs, "error", err.Error())
		a.logger.ErrorContext(ctx, "authz_permission_change", attrs...)
	} else {
		a.logger.InfoContext(ctx, "authz_permission_change", attrs...)
	}

	return added, err
}

func (a *AuditedAuthorization) AddInheritance(ctx context.Context, r RoleInheritance) (bool, error) {
	added, err := a.inner.AddInheritance(ctx, r)

	attrs := []any{
		"operation", "add_inheritance",
		"role", string(r.Role),
		"parent", string(r.Parent),
		"added", added,
	}

	if err != nil {
		attrs = append(attrs, "error", err.Error())
		a.logger.ErrorContext(ctx, "authz_role_change", attrs...)
	} else {
		a.logger.InfoContext(ctx, "authz_role_change", attrs...)
	}

	return added, err
}
