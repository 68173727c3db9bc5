package authorize

import (
	"context"
	"log/slog"
)

// DefaultPolicies is the baseline permission set of the clinic.
var DefaultPolicies = []PermissionPolicy{
	// Admin: everything
	{RoleAdmin, WildcardResource, WildcardAction, EffectAllow},

	// Professional: own agenda, attendance
	{RoleProfessional, ResourceAppointment, ActionRead, EffectAllow},
	{RoleProfessional, ResourceVisit, ActionRead, EffectAllow},
	{RoleProfessional, ResourceVisit, ActionConfirm, EffectAllow},
	{RoleProfessional, ResourceDirectory, ActionRead, EffectAllow},

	// Reception: books and edits the agenda, reads reports
	{RoleReception, ResourceAppointment, ActionWrite, EffectAllow},
	{RoleReception, ResourceVisit, ActionWrite, EffectAllow},
	{RoleReception, ResourceReport, ActionRead, EffectAllow},
}

// DefaultInheritance makes reception a superset of professional.
var DefaultInheritance = []RoleInheritance{
	{Role: RoleReception, Parent: RoleProfessional},
}

// SeedDefaultPolicies sets up the baseline RBAC policies. It is idempotent.
func SeedDefaultPolicies(ctx context.Context, auth IAuthorization) error {
	logger := slog.Default()

	added := 0
	for _, p := range DefaultPolicies {
		ok, err := auth.AddPermission(ctx, p)
		if err != nil {
			return err
		}
		if ok {
			added++
		}
	}
	for _, r := range DefaultInheritance {
		ok, err := auth.AddInheritance(ctx, r)
		if err != nil {
			return err
		}
		if ok {
			added++
		}
	}

	logger.Info("casbin policies seeded", "added", added)
	return nil
}
