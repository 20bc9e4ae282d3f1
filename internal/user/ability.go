package user

import "github.com/frahmantamala/user-management/internal/ability"

// NewAbility builds the capability rules for actor. Admins manage
// everything; everyone else reads everything. Every actor may read, update
// and delete their own User record.
func NewAbility(actor User) *ability.Ability {
	b := ability.NewBuilder()
	if actor.HasAnyRole(RoleAdmin) {
		b.Can(ability.Manage, ability.SubjectAll)
	} else {
		b.Can(ability.Read, ability.SubjectAll)
	}

	own := func(target ability.Resource) bool {
		t, ok := asUser(target)
		return ok && t.ID == actor.ID
	}
	b.CanWhen(ability.ReadOwn, ability.SubjectUser, own)
	b.CanWhen(ability.UpdateOwn, ability.SubjectUser, own)
	b.CanWhen(ability.DeleteOwn, ability.SubjectUser, own)

	return b.Build()
}

func asUser(r ability.Resource) (User, bool) {
	switch v := r.(type) {
	case User:
		return v, true
	case *User:
		if v == nil {
			return User{}, false
		}
		return *v, true
	}
	return User{}, false
}
