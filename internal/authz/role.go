package authz

import "github.com/stepline/dance_catalog/internal/models"

// Role is the caller's computed permission level on a specific list.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
	RoleNone   Role = "none"
)

// EffectiveRole resolves (caller, list, membership) to a single role.
// Ownership always wins over a membership row; a public list grants viewer
// access to everyone else.
func EffectiveRole(callerID uint, list *models.List, membership *models.ListMember) Role {
	if list == nil {
		return RoleNone
	}
	if callerID != 0 && callerID == list.OwnerID {
		return RoleOwner
	}
	if membership != nil && membership.UserID == callerID {
		switch membership.Role {
		case models.RoleEditorMember:
			return RoleEditor
		case models.RoleViewerMember:
			return RoleViewer
		}
	}
	if list.Visibility == models.VisibilityPublic {
		return RoleViewer
	}
	return RoleNone
}

// CanRead reports whether the role may see the list at all.
func (r Role) CanRead() bool { return r != RoleNone }

// CanEdit reports whether the role may mutate list contents, members and
// attributes. Deleting the list itself additionally requires ownership (or a
// global admin), which handlers check separately.
func (r Role) CanEdit() bool { return r == RoleOwner || r == RoleEditor }
