package user

type CreateUserDTO struct {
	Username string     `json:"username" validate:"required,max=64"`
	Password string     `json:"password" validate:"required,bcryptlen"`
	Roles    []RoleName `json:"roles,omitempty" validate:"omitempty,dive,oneof=admin user"`
}

type UpdateUserDTO struct {
	Username      *string        `json:"username,omitempty" validate:"omitempty,min=1,max=64"`
	Password      *string        `json:"password,omitempty" validate:"omitempty,min=1,bcryptlen"`
	AccountStatus *AccountStatus `json:"account_status,omitempty" validate:"omitempty,oneof=active inactive banned"`
	Roles         []RoleName     `json:"roles,omitempty" validate:"omitempty,dive,oneof=admin user"`
}

// Privileged reports whether the update touches fields only an admin may set.
func (d UpdateUserDTO) Privileged() bool {
	return d.AccountStatus != nil || d.Roles != nil
}
