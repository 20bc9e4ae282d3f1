package user

// Permission and role ids match the rows seeded by db/migrations.
var (
	ReadUser   = Permission{ID: 1, Name: PermissionReadUser}
	CreateUser = Permission{ID: 2, Name: PermissionCreateUser}
	UpdateUser = Permission{ID: 3, Name: PermissionUpdateUser}
	DeleteUser = Permission{ID: 4, Name: PermissionDeleteUser}
)

func AllPermissions() []Permission {
	return []Permission{ReadUser, CreateUser, UpdateUser, DeleteUser}
}

func DefaultRoleCatalog() []Role {
	return []Role{
		{ID: 1, Name: RoleAdmin, Permissions: AllPermissions()},
		{ID: 2, Name: RoleUser, Permissions: []Permission{ReadUser, UpdateUser, DeleteUser}},
	}
}

func FindRole(name RoleName) (Role, bool) {
	for _, r := range DefaultRoleCatalog() {
		if r.Name == name {
			return r, true
		}
	}
	return Role{}, false
}
