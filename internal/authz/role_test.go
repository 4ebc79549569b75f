package authz

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stepline/dance_catalog/internal/models"
)

func TestEffectiveRole(t *testing.T) {
	privateList := &models.List{ID: 1, OwnerID: 10, Visibility: models.VisibilityPrivate}
	publicList := &models.List{ID: 2, OwnerID: 10, Visibility: models.VisibilityPublic}

	tests := []struct {
		name       string
		callerID   uint
		list       *models.List
		membership *models.ListMember
		want       Role
	}{
		{"owner of private list", 10, privateList, nil, RoleOwner},
		{"stranger on private list", 20, privateList, nil, RoleNone},
		{"stranger on public list", 20, publicList, nil, RoleViewer},
		{"editor member", 20, privateList, &models.ListMember{ListID: 1, UserID: 20, Role: models.RoleEditorMember}, RoleEditor},
		{"viewer member", 20, privateList, &models.ListMember{ListID: 1, UserID: 20, Role: models.RoleViewerMember}, RoleViewer},
		{"ownership wins over membership", 10, privateList, &models.ListMember{ListID: 1, UserID: 10, Role: models.RoleViewerMember}, RoleOwner},
		{"membership row for someone else", 20, privateList, &models.ListMember{ListID: 1, UserID: 30, Role: models.RoleEditorMember}, RoleNone},
		{"unknown membership role on public list", 20, publicList, &models.ListMember{ListID: 2, UserID: 20, Role: "bogus"}, RoleViewer},
		{"anonymous on public list", 0, publicList, nil, RoleViewer},
		{"anonymous on private list", 0, privateList, nil, RoleNone},
		{"nil list", 10, nil, nil, RoleNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, EffectiveRole(tt.callerID, tt.list, tt.membership))
		})
	}
}

func TestRolePredicates(t *testing.T) {
	require.True(t, RoleOwner.CanRead())
	require.True(t, RoleOwner.CanEdit())
	require.True(t, RoleEditor.CanEdit())
	require.True(t, RoleViewer.CanRead())
	require.False(t, RoleViewer.CanEdit())
	require.False(t, RoleNone.CanRead())
	require.False(t, RoleNone.CanEdit())
}
