package permissions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jobhive/jobhive/internal/models"
)

// Sync seeds the catalog into the database. It inserts missing permissions and
// system roles only; existing rows and admin edits are left untouched and
// nothing is ever deleted. Newly inserted permissions are linked to existing
// roles whose definition grants every permission.
func Sync(ctx context.Context, db *gorm.DB, catalog *Catalog) error {
	if db == nil {
		return errors.New("permission: db is required")
	}
	if catalog == nil {
		return errors.New("permission: catalog is required")
	}
	ctx = ensureContext(ctx)

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, err := syncPermissions(tx, catalog)
		if err != nil {
			return err
		}

		for _, def := range catalog.Roles {
			role := models.Role{
				Name:        def.Name,
				Description: def.Description,
				IsActive:    true,
				IsSystem:    true,
			}
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoNothing: true,
			}).Create(&role)
			if result.Error != nil {
				return fmt.Errorf("permission: sync role %s: %w", def.Name, result.Error)
			}

			codes := inserted
			if result.RowsAffected == 1 {
				codes = catalog.RolePermissions(def)
			} else if !def.GrantsAll() {
				continue
			} else if err := tx.Where("name = ?", def.Name).First(&role).Error; err != nil {
				return fmt.Errorf("permission: load role %s: %w", def.Name, err)
			}

			if err := linkPermissions(tx, role.ID, codes); err != nil {
				return fmt.Errorf("permission: link role %s: %w", def.Name, err)
			}
		}
		return nil
	})
}

func syncPermissions(tx *gorm.DB, catalog *Catalog) ([]string, error) {
	var inserted []string
	for _, def := range catalog.Permissions {
		record := models.Permission{
			Code:        def.Code,
			Resource:    def.Resource,
			Action:      def.Action,
			Description: def.Description,
			IsActive:    true,
		}
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&record)
		if result.Error != nil {
			return nil, fmt.Errorf("permission: sync %s: %w", def.Code, result.Error)
		}
		if result.RowsAffected == 1 {
			inserted = append(inserted, def.Code)
		}
	}
	return inserted, nil
}

func linkPermissions(tx *gorm.DB, roleID string, codes []string) error {
	if len(codes) == 0 {
		return nil
	}

	var ids []string
	if err := tx.Model(&models.Permission{}).Where("code IN ?", codes).Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	now := time.Now()
	links := make([]models.RolePermission, 0, len(ids))
	for _, id := range ids {
		links = append(links, models.RolePermission{RoleID: roleID, PermissionID: id, CreatedAt: now})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
}
