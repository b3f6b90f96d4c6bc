package admin

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/roasapp-backend/internal/apps"
	"github.com/angelmondragon/roasapp-backend/internal/entitlements"
	"github.com/angelmondragon/roasapp-backend/internal/users"
	"github.com/angelmondragon/roasapp-backend/pkg/config"
	"github.com/angelmondragon/roasapp-backend/pkg/db"
	"github.com/angelmondragon/roasapp-backend/pkg/db/models"
	"github.com/angelmondragon/roasapp-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
	"github.com/angelmondragon/roasapp-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type revokeRecorder struct {
	revoked []uuid.UUID
}

func (r *revokeRecorder) RevokeUser(_ context.Context, userID uuid.UUID) error {
	r.revoked = append(r.revoked, userID)
	return nil
}

type harness struct {
	svc      Service
	conn     *gorm.DB
	users    *users.Repository
	app      models.App
	sessions *revokeRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.All()...))

	appRepo := apps.NewRepository(conn)
	app := models.App{Name: "ROAS Calculator", Slug: "roas_calculator"}
	require.NoError(t, appRepo.Upsert(context.Background(), &app))

	ents, err := entitlements.NewService(appRepo, entitlements.NewRepository(conn), config.EntitlementConfig{TrialWindow: 24 * time.Hour})
	require.NoError(t, err)

	userRepo := users.NewRepository(conn)
	sessions := &revokeRecorder{}
	svc, err := NewService(ServiceParams{
		Users:        userRepo,
		Entitlements: ents,
		Tx:           db.NewFromGorm(conn),
		Sessions:     sessions,
		Logger:       logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return &harness{svc: svc, conn: conn, users: userRepo, app: app, sessions: sessions}
}

func (h *harness) createUser(t *testing.T, name string, role enums.UserRole, createdAt time.Time) *models.User {
	t.Helper()
	user := &models.User{Username: name, PasswordHash: "x", Role: role, CreatedAt: createdAt}
	require.NoError(t, h.conn.Create(user).Error)
	return user
}

func TestListUsersPagesRegularUsersWithStatuses(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	h.createUser(t, "admin", enums.UserRoleAdmin, base)
	first := h.createUser(t, "ana", enums.UserRoleUser, base.Add(time.Minute))
	h.createUser(t, "bayu", enums.UserRoleUser, base.Add(2*time.Minute))
	h.createUser(t, "citra", enums.UserRoleUser, base.Add(3*time.Minute))

	_, err := h.svc.GrantAccess(ctx, first.ID, h.app.ID, GrantRequest{Type: enums.GrantKindPremium, Duration: enums.PremiumDuration7Days})
	require.NoError(t, err)

	page, err := h.svc.ListUsers(ctx, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Users, 2)
	assert.Equal(t, "ana", page.Users[0].Username)
	require.Len(t, page.Users[0].Apps, 1)
	assert.Equal(t, enums.AccessTypePremium, page.Users[0].Apps[0].AccessType)
	assert.Empty(t, page.Users[1].Apps)
	require.NotEmpty(t, page.NextCursor)

	next, err := h.svc.ListUsers(ctx, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Users, 1)
	assert.Equal(t, "citra", next.Users[0].Username)
	assert.Empty(t, next.NextCursor)

	_, err = h.svc.ListUsers(ctx, pagination.Params{Cursor: "%%%"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDeleteUserCascadesLinks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.createUser(t, "dewi", enums.UserRoleUser, time.Now().UTC())

	_, err := h.svc.GrantAccess(ctx, user.ID, h.app.ID, GrantRequest{Type: enums.GrantKindTrial})
	require.NoError(t, err)

	require.NoError(t, h.svc.DeleteUser(ctx, user.ID))

	var links int64
	require.NoError(t, h.conn.Model(&models.UserApp{}).Where("user_id = ?", user.ID).Count(&links).Error)
	assert.Zero(t, links)
	_, err = h.users.FindByID(ctx, user.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Equal(t, []uuid.UUID{user.ID}, h.sessions.revoked)

	require.True(t, pkgerrors.IsCode(h.svc.DeleteUser(ctx, user.ID), pkgerrors.CodeNotFound))
}

func TestDeleteUserRefusesAdmins(t *testing.T) {
	h := newHarness(t)
	admin := h.createUser(t, "root", enums.UserRoleAdmin, time.Now().UTC())

	err := h.svc.DeleteUser(context.Background(), admin.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	assert.Empty(t, h.sessions.revoked)
}

func TestGrantAccessAndUninstall(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.createUser(t, "eka", enums.UserRoleUser, time.Now().UTC())

	_, err := h.svc.GrantAccess(ctx, uuid.New(), h.app.ID, GrantRequest{Type: enums.GrantKindTrial})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = h.svc.GrantAccess(ctx, user.ID, h.app.ID, GrantRequest{Type: enums.GrantKindPremium, Duration: enums.PremiumDurationCustom})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	st, err := h.svc.GrantAccess(ctx, user.ID, h.app.ID, GrantRequest{Type: enums.GrantKindPremium, Duration: enums.PremiumDurationCustom, CustomHours: 12})
	require.NoError(t, err)
	assert.True(t, st.IsPremiumActive)

	require.NoError(t, h.svc.UninstallApp(ctx, user.ID, h.app.ID))
	require.True(t, pkgerrors.IsCode(h.svc.UninstallApp(ctx, user.ID, h.app.ID), pkgerrors.CodeNotFound))
}
