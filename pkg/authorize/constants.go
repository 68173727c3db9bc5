package authorize

type Action string
type Resource string
type Role string
type PolicyEffect string

// ----------------------------
// Actions
// ----------------------------

const (
	ActionRead    Action = "read"
	ActionWrite   Action = "write"
	ActionConfirm Action = "confirm"
	ActionExecute Action = "execute"

	WildcardAction Action = "*"
)

var KnownActions = map[Action]struct{}{
	ActionRead: {}, ActionWrite: {}, ActionConfirm: {}, ActionExecute: {},
}

// ----------------------------
// Resources
// ----------------------------

const (
	ResourceAppointment Resource = "appointment"
	ResourceVisit       Resource = "visit"
	ResourceDirectory   Resource = "directory"
	ResourceReport      Resource = "report"
	ResourceJob         Resource = "job"

	WildcardResource Resource = "*"
)

var KnownResources = map[Resource]struct{}{
	ResourceAppointment: {}, ResourceVisit: {}, ResourceDirectory: {},
	ResourceReport: {}, ResourceJob: {},
}

// ----------------------------
// Roles
// ----------------------------

const (
	RoleAdmin        Role = "admin"
	RoleReception    Role = "reception"
	RoleProfessional Role = "professional"
)

var KnownRoles = map[Role]struct{}{
	RoleAdmin: {}, RoleReception: {}, RoleProfessional: {},
}

// ----------------------------
// Effects
// ----------------------------

const (
	EffectAllow PolicyEffect = "allow"
	EffectDeny  PolicyEffect = "deny"
)

// PermissionPolicy is one "p" line: role, resource, action, effect.
type PermissionPolicy struct {
	Role     Role
	Resource Resource
	Action   Action
	Effect   PolicyEffect
}

// RoleInheritance is one "g" line: Role inherits every permission of Parent.
type RoleInheritance struct {
	Role   Role
	Parent Role
}

func IsKnownRole(r Role) bool {
	_, ok := KnownRoles[r]
	return ok
}
