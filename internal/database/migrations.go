package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/jobhive/jobhive/internal/models"
	"github.com/jobhive/jobhive/internal/permissions"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.Role{}, "Permissions", &models.RolePermission{}); err != nil {
		return fmt.Errorf("setup role permissions join table: %w", err)
	}

	return db.AutoMigrate(
		&models.Company{},
		&models.User{},
		&models.Permission{},
		&models.Role{},
		&models.RolePermission{},
		&models.UserRoleGrant{},
		&models.Job{},
		&models.AuditLog{},
		&models.CacheEntry{},
	)
}

// SeedData inserts the default permission catalog and system roles.
func SeedData(db *gorm.DB) error {
	catalog, err := permissions.DefaultCatalog()
	if err != nil {
		return err
	}
	return permissions.Sync(context.Background(), db, catalog)
}
