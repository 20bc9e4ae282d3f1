package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/user-management/internal"
	userDatamodel "github.com/frahmantamala/user-management/internal/core/datamodel/user"
	"github.com/frahmantamala/user-management/internal/user"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewUserRepository expects db to be opened with TranslateError enabled so
// unique violations surface as gorm.ErrDuplicatedKey.
func NewUserRepository(db *gorm.DB, timeout time.Duration) *UserRepository {
	return &UserRepository{db: db, timeout: timeout}
}

var _ user.Repository = (*UserRepository)(nil)

func (r *UserRepository) withPreload(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Roles", func(db *gorm.DB) *gorm.DB { return db.Order("roles.id") }).
		Preload("Roles.Permissions", func(db *gorm.DB) *gorm.DB { return db.Order("permissions.id") }).
		Preload("Permissions", func(db *gorm.DB) *gorm.DB { return db.Order("permissions.id") })
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (user.User, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row userDatamodel.User
	if err := r.withPreload(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return user.User{}, translate(err)
	}
	return toDomain(row), nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (user.User, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row userDatamodel.User
	if err := r.withPreload(ctx).Where("username = ?", username).First(&row).Error; err != nil {
		return user.User{}, translate(err)
	}
	return toDomain(row), nil
}

func (r *UserRepository) FindAll(ctx context.Context) ([]user.User, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []userDatamodel.User
	if err := r.withPreload(ctx).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]user.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomain(row))
	}
	return out, nil
}

func (r *UserRepository) Save(ctx context.Context, u user.User) (user.User, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	u = u.CloneWithID(u.ID)
	row := toRow(u)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&userDatamodel.User{}).Where("LOWER(username) = LOWER(?)", u.Username).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return internal.ErrUserAlreadyExists
		}
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return err
		}
		return replaceGrants(tx, u)
	})
	if err != nil {
		return user.User{}, translate(err)
	}
	return r.FindByID(ctx, u.ID)
}

func (r *UserRepository) Update(ctx context.Context, id string, u user.User) (user.User, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	u = u.CloneWithID(id)
	row := toRow(u)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&userDatamodel.User{}).Where("id = ?", id).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return internal.ErrUserNotFound
		}

		var collisions int64
		if err := tx.Model(&userDatamodel.User{}).
			Where("LOWER(username) = LOWER(?) AND id <> ?", u.Username, id).
			Count(&collisions).Error; err != nil {
			return err
		}
		if collisions > 0 {
			return internal.ErrUsernameInUse
		}

		if err := tx.Model(&userDatamodel.User{ID: id}).
			Select("username", "password_hash", "account_status", "updated_at").
			Updates(&row).Error; err != nil {
			return err
		}
		return replaceGrants(tx, u)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return user.User{}, internal.ErrUsernameInUse
		}
		return user.User{}, translate(err)
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&userDatamodel.UserRole{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&userDatamodel.UserPermission{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&userDatamodel.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrUserNotFound
		}
		return nil
	}))
}

// replaceGrants rewrites the user's role and direct permission links. Roles
// and permissions themselves are reference data and are never written here.
func replaceGrants(tx *gorm.DB, u user.User) error {
	if err := tx.Where("user_id = ?", u.ID).Delete(&userDatamodel.UserRole{}).Error; err != nil {
		return err
	}
	if err := tx.Where("user_id = ?", u.ID).Delete(&userDatamodel.UserPermission{}).Error; err != nil {
		return err
	}

	if len(u.Roles) > 0 {
		links := make([]userDatamodel.UserRole, 0, len(u.Roles))
		for _, role := range u.Roles {
			links = append(links, userDatamodel.UserRole{UserID: u.ID, RoleID: role.ID})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
			return err
		}
	}
	if len(u.Permissions) > 0 {
		links := make([]userDatamodel.UserPermission, 0, len(u.Permissions))
		for _, p := range u.Permissions {
			links = append(links, userDatamodel.UserPermission{UserID: u.ID, PermissionID: p.ID})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
			return err
		}
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return internal.ErrUserNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return internal.ErrUserAlreadyExists
	}
	return err
}

func toRow(u user.User) userDatamodel.User {
	return userDatamodel.User{
		ID:            u.ID,
		Username:      u.Username,
		PasswordHash:  u.Password,
		AccountStatus: string(u.AccountStatus),
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func toDomain(row userDatamodel.User) user.User {
	roles := make([]user.Role, 0, len(row.Roles))
	for _, r := range row.Roles {
		roles = append(roles, user.Role{
			ID:          r.ID,
			Name:        user.RoleName(r.Name),
			Permissions: toPermissions(r.Permissions),
		})
	}
	return user.NewUser(user.Props{
		ID:            row.ID,
		Username:      row.Username,
		Password:      row.PasswordHash,
		AccountStatus: user.AccountStatus(row.AccountStatus),
		Roles:         roles,
		Permissions:   toPermissions(row.Permissions),
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	})
}

func toPermissions(rows []userDatamodel.Permission) []user.Permission {
	out := make([]user.Permission, 0, len(rows))
	for _, p := range rows {
		out = append(out, user.Permission{ID: p.ID, Name: user.PermissionName(p.Name)})
	}
	return out
}
