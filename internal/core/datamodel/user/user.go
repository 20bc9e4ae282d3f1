package user

import "time"

type User struct {
	ID            string       `gorm:"primaryKey;type:varchar(36)"`
	Username      string       `gorm:"column:username;uniqueIndex;not null"`
	PasswordHash  string       `gorm:"column:password_hash;not null"`
	AccountStatus string       `gorm:"column:account_status;not null;default:active"`
	Roles         []Role       `gorm:"many2many:user_roles;"`
	Permissions   []Permission `gorm:"many2many:user_permissions;"`
	CreatedAt     time.Time    `gorm:"column:created_at;not null"`
	UpdatedAt     *time.Time   `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (User) TableName() string { return "users" }

type Role struct {
	ID          int64        `gorm:"primaryKey;autoIncrement:false"`
	Name        string       `gorm:"column:name;uniqueIndex;not null"`
	Permissions []Permission `gorm:"many2many:role_permissions;"`
}

func (Role) TableName() string { return "roles" }

type Permission struct {
	ID   int64  `gorm:"primaryKey;autoIncrement:false"`
	Name string `gorm:"column:name;uniqueIndex;not null"`
}

func (Permission) TableName() string { return "permissions" }

type UserRole struct {
	UserID string `gorm:"primaryKey;column:user_id"`
	RoleID int64  `gorm:"primaryKey;column:role_id"`
}

func (UserRole) TableName() string { return "user_roles" }

type UserPermission struct {
	UserID       string `gorm:"primaryKey;column:user_id"`
	PermissionID int64  `gorm:"primaryKey;column:permission_id"`
}

func (UserPermission) TableName() string { return "user_permissions" }

type RolePermission struct {
	RoleID       int64 `gorm:"primaryKey;column:role_id"`
	PermissionID int64 `gorm:"primaryKey;column:permission_id"`
}

func (RolePermission) TableName() string { return "role_permissions" }
