package postgres

import (
	"context"
	"fmt"

	userDatamodel "github.com/frahmantamala/user-management/internal/core/datamodel/user"
	"github.com/frahmantamala/user-management/internal/user"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AutoMigrate creates the user tables through gorm. Postgres deployments use
// the goose migrations instead; this path serves sqlite and tests.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&userDatamodel.Permission{},
		&userDatamodel.Role{},
		&userDatamodel.User{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// SeedCatalog inserts the fixed roles and permissions. Existing rows are left
// untouched so it is safe to run on every start.
func SeedCatalog(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range user.AllPermissions() {
			row := userDatamodel.Permission{ID: p.ID, Name: string(p.Name)}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return fmt.Errorf("seed permission %s: %w", p.Name, err)
			}
		}
		for _, r := range user.DefaultRoleCatalog() {
			row := userDatamodel.Role{ID: r.ID, Name: string(r.Name)}
			if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return fmt.Errorf("seed role %s: %w", r.Name, err)
			}
			for _, p := range r.Permissions {
				link := userDatamodel.RolePermission{RoleID: r.ID, PermissionID: p.ID}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
					return fmt.Errorf("seed role permission %s/%s: %w", r.Name, p.Name, err)
				}
			}
		}
		return nil
	})
}

// ClearUsers removes every user and grant, keeping the catalog.
func ClearUsers(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&userDatamodel.UserRole{},
			&userDatamodel.UserPermission{},
			&userDatamodel.User{},
		} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
