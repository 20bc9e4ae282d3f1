// Package ability is a small capability engine: an ordered list of
// (action, subject, condition) rules answered by Can.
package ability

type Action string

const (
	Manage    Action = "manage"
	Create    Action = "create"
	Read      Action = "read"
	Update    Action = "update"
	Delete    Action = "delete"
	ReadOwn   Action = "read-own"
	UpdateOwn Action = "update-own"
	DeleteOwn Action = "delete-own"
)

type Subject string

const (
	SubjectAll  Subject = "all"
	SubjectUser Subject = "User"
)

// Resource is anything a rule can be evaluated against.
type Resource interface {
	SubjectType() Subject
}

// Condition narrows a rule to specific instances.
type Condition func(target Resource) bool

type Rule struct {
	Action    Action
	Subject   Subject
	Condition Condition
}

func (r Rule) matches(action Action, target Resource) bool {
	if r.Action != Manage && r.Action != action {
		return false
	}
	if r.Subject != SubjectAll {
		if target == nil || target.SubjectType() != r.Subject {
			return false
		}
	}
	if r.Condition != nil {
		return target != nil && r.Condition(target)
	}
	return true
}

type Ability struct {
	rules []Rule
}

func (a *Ability) Can(action Action, target Resource) bool {
	if a == nil {
		return false
	}
	for _, r := range a.rules {
		if r.matches(action, target) {
			return true
		}
	}
	return false
}

func (a *Ability) Cannot(action Action, target Resource) bool {
	return !a.Can(action, target)
}

func (a *Ability) Rules() []Rule {
	out := make([]Rule, len(a.rules))
	copy(out, a.rules)
	return out
}

type Builder struct {
	rules []Rule
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Can(action Action, subject Subject) *Builder {
	b.rules = append(b.rules, Rule{Action: action, Subject: subject})
	return b
}

func (b *Builder) CanWhen(action Action, subject Subject, cond Condition) *Builder {
	b.rules = append(b.rules, Rule{Action: action, Subject: subject, Condition: cond})
	return b
}

func (b *Builder) Build() *Ability {
	rules := make([]Rule, len(b.rules))
	copy(rules, b.rules)
	return &Ability{rules: rules}
}
