package database

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jobhive/jobhive/internal/models"
	"github.com/jobhive/jobhive/internal/permissions"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	if err := db.Exec("SELECT 1").Error; err != nil {
		t.Fatalf("expected health query to succeed: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestOpenTranslatesUniqueViolations(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	require.NoError(t, db.Create(&models.Role{Name: "SOURCER"}).Error)
	err := db.Create(&models.Role{Name: "SOURCER"}).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestAutoMigrateCreatesTables(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	tables := []interface{}{
		&models.Permission{},
		&models.Role{},
		&models.RolePermission{},
		&models.UserRoleGrant{},
		&models.Company{},
		&models.User{},
		&models.Job{},
		&models.AuditLog{},
		&models.CacheEntry{},
	}
	for _, table := range tables {
		require.True(t, migrator.HasTable(table), "expected table for %T to exist", table)
	}
	require.True(t, migrator.HasColumn(&models.RolePermission{}, "created_at"))
}

func TestAutoMigrateAndSeedData(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrateAndSeed(db))

	catalog, err := permissions.DefaultCatalog()
	require.NoError(t, err)

	var permissionCount int64
	require.NoError(t, db.Model(&models.Permission{}).Count(&permissionCount).Error)
	require.EqualValues(t, len(catalog.Permissions), permissionCount)

	var super models.Role
	require.NoError(t, db.Preload("Permissions").Where("name = ?", permissions.RoleSuperAdmin).First(&super).Error)
	require.True(t, super.IsSystem)
	require.True(t, super.IsActive)
	require.Len(t, super.Permissions, len(catalog.Permissions))

	var moderator models.Role
	require.NoError(t, db.Preload("Permissions").Where("name = ?", permissions.RoleModerator).First(&moderator).Error)
	require.ElementsMatch(t, []string{
		permissions.AccessAdminPanel,
		permissions.ViewJob,
		permissions.ModerateJob,
		permissions.ViewCompany,
		permissions.ViewUsers,
		permissions.ViewApplications,
	}, moderator.PermissionCodes())
}

func TestSeedDataPreservesAdminEdits(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrateAndSeed(db))

	var employer models.Role
	require.NoError(t, db.Where("name = ?", permissions.RoleEmployer).First(&employer).Error)
	require.NoError(t, db.Where("role_id = ?", employer.ID).Delete(&models.RolePermission{}).Error)
	require.NoError(t, db.Model(&employer).Update("description", "edited").Error)

	require.NoError(t, SeedData(db))

	var count int64
	require.NoError(t, db.Model(&models.RolePermission{}).Where("role_id = ?", employer.ID).Count(&count).Error)
	require.Zero(t, count, "seeding must not restore links an admin removed")

	var reloaded models.Role
	require.NoError(t, db.First(&reloaded, "id = ?", employer.ID).Error)
	require.Equal(t, "edited", reloaded.Description)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite", DSN: "file:" + t.Name() + "?mode=memory&cache=shared&_foreign_keys=1"})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
