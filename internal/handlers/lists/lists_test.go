package lists_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stepline/dance_catalog/internal/models"
	"github.com/stepline/dance_catalog/internal/testenv"
)

func createList(env *testenv.Env, token, name, visibility string) *models.List {
	rec := env.Do(http.MethodPost, "/api/lists", token, map[string]string{
		"name":       name,
		"visibility": visibility,
	})
	require.Equal(env.T, http.StatusCreated, rec.Code, rec.Body.String())

	var list models.List
	env.Decode(rec, &list)
	return &list
}

func TestCreateList(t *testing.T) {
	env := testenv.New(t)
	alice, token := env.CreateUser("alice", "alice@example.com", "Secret123!", models.RoleUser)

	list := createList(env, token, "Favorites", "private")
	require.Equal(t, alice.ID, list.OwnerID)
	require.Equal(t, models.VisibilityPrivate, list.Visibility)
	require.Empty(t, list.ShareToken)
}

func TestCreateSharedListMintsShareToken(t *testing.T) {
	env := testenv.New(t)
	_, token := env.CreateUser("alice", "alice@example.com", "Secret123!", models.RoleUser)

	list := createList(env, token, "Party set", "shared")
	require.NotEmpty(t, list.ShareToken)

	rec := env.Do(http.MethodGet, "/api/lists/shared/"+list.ShareToken, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestCreateListDuplicateNamePerOwner(t *testing.T) {
	env := testenv.New(t)
	_, aliceToken := env.CreateUser("alice", "alice@example.com", "Secret123!", models.RoleUser)
	_, bobToken := env.CreateUser("bob", "bob@example.com", "Secret123!", models.RoleUser)

	createList(env, aliceToken, "Favorites", "private")

	dup := env.Do(http.MethodPost, "/api/lists", aliceToken, map[string]string{"name": "Favorites"})
	require.Equal(t, http.StatusConflict, dup.Code)

	// The same name under a different owner is fine.
	other := env.Do(http.MethodPost, "/api/lists", bobToken, map[string]string{"name": "Favorites"})
	require.Equal(t, http.StatusCreated, other.Code)
}

func TestDeleteListOwnershipGate(t *testing.T) {
	env := testenv.New(t)
	_, aliceToken := env.CreateUser("alice", "alice@example.com", "Secret123!", models.RoleUser)
	_, bobToken := env.CreateUser("bob", "bob@example.com", "Secret123!", models.RoleUser)
	_, adminToken := env.CreateUser("zadmin", "admin@example.com", "Secret123!", models.RoleAdmin)

	list := createList(env, aliceToken, "Favorites", "private")
	path := fmt.Sprintf("/api/lists/%d", list.ID)

	denied := env.Do(http.MethodDelete, path, bobToken, nil)
	require.Equal(t, http.StatusForbidden, denied.Code)

	allowed := env.Do(http.MethodDelete, path, aliceToken, nil)
	require.Equal(t, http.StatusOK, allowed.Code)

	// A global admin may delete someone else's list.
	second := createList(env, aliceToken, "Second", "private")
	adminDelete := env.Do(http.MethodDelete, fmt.Sprintf("/api/lists/%d", second.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, adminDelete.Code)
}

func TestEditorCannotDeleteList(t *testing.T) {
	env := testenv.New(t)
	_, aliceToken := env.CreateUser("alice", "alice@example.com", "Secret123!", models.RoleUser)
	bob, bobToken := env.CreateUser("bob", "bob@example.com", "Secret123!", models.RoleUser)

	list := createList(env, aliceToken, "Favorites", "private")

	add := env.Do(http.MethodPost, fmt.Sprintf("/api/lists/%d/members", list.ID), aliceToken, map[string]any{
		"user_id": bob.ID,
		"role":    models.RoleEditorMember,
	})
	require.Equal(t, http.StatusCreated, add.Code)

	// An editor can rename but not delete.
	rename := env.Do(http.MethodPut, fmt.Sprintf("/api/lists/%d", list.ID), bobToken, map[string]string{"name": "Renamed"})
	require.Equal(t, http.StatusOK, rename.Code, rename.Body.String())

	del := env.Do(http.MethodDelete, fmt.Sprintf("/api/lists/%d", list.ID), bobToken, nil)
	require.Equal(t, http.StatusForbidden, del.Code)
}

func TestReadAccess(t *testing.T) {
	env := testenv.New(t)
	_, aliceToken := env.CreateUser("alice", "alice@example.com", "Secret123!", models.RoleUser)
	_, bobToken := env.CreateUser("bob", "bob@example.com", "Secret123!", models.RoleUser)

	private := createList(env, aliceToken, "Private", "private")
	public := createList(env, aliceToken, "Public", "public")

	denied := env.Do(http.MethodGet, fmt.Sprintf("/api/lists/%d", private.ID), bobToken, nil)
	require.Equal(t, http.StatusForbidden, denied.Code)

	anonymousDenied := env.Do(http.MethodGet, fmt.Sprintf("/api/lists/%d", private.ID), "", nil)
	require.Equal(t, http.StatusForbidden, anonymousDenied.Code)

	allowed := env.Do(http.MethodGet, fmt.Sprintf("/api/lists/%d", public.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, allowed.Code)

	anonymousAllowed := env.Do(http.MethodGet, fmt.Sprintf("/api/lists/%d", public.ID), "", nil)
	require.Equal(t, http.StatusOK, anonymousAllowed.Code)

	missing := env.Do(http.MethodGet, "/api/lists/99999", aliceToken, nil)
	require.Equal(t, http.StatusNotFound, missing.Code)
}

func TestViewerCannotMutate(t *testing.T) {
	env := testenv.New(t)
	_, aliceToken := env.CreateUser("alice", "alice@example.com", "Secret123!", models.RoleUser)
	bob, bobToken := env.CreateUser("bob", "bob@example.com", "Secret123!", models.RoleUser)
	move := env.CreateMove("windmill")

	list := createList(env, aliceToken, "Favorites", "private")

	add := env.Do(http.MethodPost, fmt.Sprintf("/api/lists/%d/members", list.ID), aliceToken, map[string]any{
		"user_id": bob.ID,
		"role":    models.RoleViewerMember,
	})
	require.Equal(t, http.StatusCreated, add.Code)

	read := env.Do(http.MethodGet, fmt.Sprintf("/api/lists/%d", list.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, read.Code)

	mutate := env.Do(http.MethodPost, fmt.Sprintf("/api/lists/%d/moves", list.ID), bobToken, map[string]any{
		"move_id": move.ID,
	})
	require.Equal(t, http.StatusForbidden, mutate.Code)
}

func TestAddMoveDuplicate(t *testing.T) {
	env := testenv.New(t)
	_, token := env.CreateUser("alice", "alice@example.com", "Secret123!", models.RoleUser)
	move := env.CreateMove("windmill")

	list := createList(env, token, "Favorites", "private")
	path := fmt.Sprintf("/api/lists/%d/moves", list.ID)

	first := env.Do(http.MethodPost, path, token, map[string]any{"move_id": move.ID})
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := env.Do(http.MethodPost, path, token, map[string]any{"move_id": move.ID})
	require.Equal(t, http.StatusConflict, second.Code)

	var count int64
	env.DB.Model(&models.ListMove{}).Where("list_id = ?", list.ID).Count(&count)
	require.EqualValues(t, 1, count)
}

func TestAddMoveUnknownMove(t *testing.T) {
	env := testenv.New(t)
	_, token := env.CreateUser("alice", "alice@example.com", "Secret123!", models.RoleUser)
	list := createList(env, token, "Favorites", "private")

	rec := env.Do(http.MethodPost, fmt.Sprintf("/api/lists/%d/moves", list.ID), token, map[string]any{"move_id": 99999})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddMovesBatch(t *testing.T) {
	env := testenv.New(t)
	_, token := env.CreateUser("alice", "alice@example.com", "Secret123!", models.RoleUser)
	m1 := env.CreateMove("windmill")
	m2 := env.CreateMove("flare")
	m3 := env.CreateMove("headspin")

	list := createList(env, token, "Favorites", "private")
	single := env.Do(http.MethodPost, fmt.Sprintf("/api/lists/%d/moves", list.ID), token, map[string]any{"move_id": m1.ID})
	require.Equal(t, http.StatusCreated, single.Code)

	// Already-present moves are skipped, the rest land.
	batch := env.Do(http.MethodPost, fmt.Sprintf("/api/lists/%d/moves/batch", list.ID), token, map[string]any{
		"move_ids": []uint{m1.ID, m2.ID, m3.ID},
	})
	require.Equal(t, http.StatusCreated, batch.Code, batch.Body.String())

	var resp struct {
		Added []models.ListMove `json:"added"`
	}
	env.Decode(batch, &resp)
	require.Len(t, resp.Added, 2)

	var count int64
	env.DB.Model(&models.ListMove{}).Where("list_id = ?", list.ID).Count(&count)
	require.EqualValues(t, 3, count)

	// Nothing new in the batch is a conflict.
	again := env.Do(http.MethodPost, fmt.Sprintf("/api/lists/%d/moves/batch", list.ID), token, map[string]any{
		"move_ids": []uint{m1.ID, m2.ID},
	})
	require.Equal(t, http.StatusConflict, again.Code)
}

func TestAddMovesBatchConcurrentDuplicate(t *testing.T) {
	env := testenv.New(t)
	alice, token := env.CreateUser("alice", "alice@example.com", "Secret123!", models.RoleUser)
	move := env.CreateMove("windmill")
	list := createList(env, token, "Favorites", "private")

	// Simulate a writer landing the same row between the duplicate pre-check
	// and the insert, on the same transaction connection.
	injected := false
	err := env.DB.Callback().Create().Before("gorm:create").Register("inject_duplicate_row", func(tx *gorm.DB) {
		if injected || tx.Statement.Table != "list_moves" {
			return
		}
		injected = true
		_, execErr := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"INSERT INTO list_moves (list_id, move_id, added_by, added_at) VALUES (?, ?, ?, ?)",
			list.ID, move.ID, alice.ID, time.Now())
		require.NoError(t, execErr)
	})
	require.NoError(t, err)

	batch := env.Do(http.MethodPost, fmt.Sprintf("/api/lists/%d/moves/batch", list.ID), token, map[string]any{
		"move_ids": []uint{move.ID},
	})
	require.Equal(t, http.StatusConflict, batch.Code, batch.Body.String())
	require.True(t, injected)

	// The injected row rode the same transaction, so the rollback leaves
	// the list untouched.
	var count int64
	env.DB.Model(&models.ListMove{}).Where("list_id = ?", list.ID).Count(&count)
	require.Zero(t, count)
}

func TestShareLinkRevokedWhenPrivate(t *testing.T) {
	env := testenv.New(t)
	_, token := env.CreateUser("alice", "alice@example.com", "Secret123!", models.RoleUser)

	list := createList(env, token, "Party set", "shared")
	require.NotEmpty(t, list.ShareToken)

	shared := env.Do(http.MethodGet, "/api/lists/shared/"+list.ShareToken, "", nil)
	require.Equal(t, http.StatusOK, shared.Code)

	upd := env.Do(http.MethodPut, fmt.Sprintf("/api/lists/%d", list.ID), token, map[string]string{
		"visibility": "private",
	})
	require.Equal(t, http.StatusOK, upd.Code, upd.Body.String())

	var updated models.List
	env.Decode(upd, &updated)
	require.Empty(t, updated.ShareToken)

	stale := env.Do(http.MethodGet, "/api/lists/shared/"+list.ShareToken, "", nil)
	require.Equal(t, http.StatusNotFound, stale.Code)

	// Re-sharing mints a fresh token rather than reviving the old link.
	reshared := env.Do(http.MethodPut, fmt.Sprintf("/api/lists/%d", list.ID), token, map[string]string{
		"visibility": "shared",
	})
	require.Equal(t, http.StatusOK, reshared.Code)

	var again models.List
	env.Decode(reshared, &again)
	require.NotEmpty(t, again.ShareToken)
	require.NotEqual(t, list.ShareToken, again.ShareToken)
}

func TestRemoveMove(t *testing.T) {
	env := testenv.New(t)
	_, token := env.CreateUser("alice", "alice@example.com", "Secret123!", models.RoleUser)
	move := env.CreateMove("windmill")

	list := createList(env, token, "Favorites", "private")
	add := env.Do(http.MethodPost, fmt.Sprintf("/api/lists/%d/moves", list.ID), token, map[string]any{"move_id": move.ID})
	require.Equal(t, http.StatusCreated, add.Code)

	del := env.Do(http.MethodDelete, fmt.Sprintf("/api/lists/%d/moves/%d", list.ID, move.ID), token, nil)
	require.Equal(t, http.StatusOK, del.Code)

	again := env.Do(http.MethodDelete, fmt.Sprintf("/api/lists/%d/moves/%d", list.ID, move.ID), token, nil)
	require.Equal(t, http.StatusNotFound, again.Code)
}

func TestMembers(t *testing.T) {
	env := testenv.New(t)
	alice, aliceToken := env.CreateUser("alice", "alice@example.com", "Secret123!", models.RoleUser)
	bob, _ := env.CreateUser("bob", "bob@example.com", "Secret123!", models.RoleUser)

	list := createList(env, aliceToken, "Favorites", "private")
	path := fmt.Sprintf("/api/lists/%d/members", list.ID)

	ownerAsMember := env.Do(http.MethodPost, path, aliceToken, map[string]any{
		"user_id": alice.ID,
		"role":    models.RoleEditorMember,
	})
	require.Equal(t, http.StatusBadRequest, ownerAsMember.Code)

	badRole := env.Do(http.MethodPost, path, aliceToken, map[string]any{
		"user_id": bob.ID,
		"role":    "owner",
	})
	require.Equal(t, http.StatusBadRequest, badRole.Code)

	add := env.Do(http.MethodPost, path, aliceToken, map[string]any{
		"user_id": bob.ID,
		"role":    models.RoleViewerMember,
	})
	require.Equal(t, http.StatusCreated, add.Code)

	dup := env.Do(http.MethodPost, path, aliceToken, map[string]any{
		"user_id": bob.ID,
		"role":    models.RoleViewerMember,
	})
	require.Equal(t, http.StatusConflict, dup.Code)

	remove := env.Do(http.MethodDelete, fmt.Sprintf("%s/%d", path, bob.ID), aliceToken, nil)
	require.Equal(t, http.StatusOK, remove.Code)

	removeAgain := env.Do(http.MethodDelete, fmt.Sprintf("%s/%d", path, bob.ID), aliceToken, nil)
	require.Equal(t, http.StatusNotFound, removeAgain.Code)
}

func TestDeleteCascades(t *testing.T) {
	env := testenv.New(t)
	_, aliceToken := env.CreateUser("alice", "alice@example.com", "Secret123!", models.RoleUser)
	bob, _ := env.CreateUser("bob", "bob@example.com", "Secret123!", models.RoleUser)
	move := env.CreateMove("windmill")

	list := createList(env, aliceToken, "Favorites", "private")
	env.Do(http.MethodPost, fmt.Sprintf("/api/lists/%d/moves", list.ID), aliceToken, map[string]any{"move_id": move.ID})
	env.Do(http.MethodPost, fmt.Sprintf("/api/lists/%d/members", list.ID), aliceToken, map[string]any{
		"user_id": bob.ID,
		"role":    models.RoleViewerMember,
	})

	del := env.Do(http.MethodDelete, fmt.Sprintf("/api/lists/%d", list.ID), aliceToken, nil)
	require.Equal(t, http.StatusOK, del.Code)

	var moveCount, memberCount int64
	env.DB.Model(&models.ListMove{}).Where("list_id = ?", list.ID).Count(&moveCount)
	env.DB.Model(&models.ListMember{}).Where("list_id = ?", list.ID).Count(&memberCount)
	require.Zero(t, moveCount)
	require.Zero(t, memberCount)
}
