package entity

import "strings"

type ActorKind string

const (
	ActorPatient ActorKind = "PATIENT"
	ActorStaff   ActorKind = "STAFF"
	ActorDoctor  ActorKind = "DOCTOR"
	ActorAdmin   ActorKind = "ADMIN"
)

// Actor identifies who performs an operation. Verifiers can be staff, doctors or
// admins; authorization switches on Kind.
type Actor struct {
	Kind ActorKind
	ID   string
}

func ParseActorKind(raw string) (ActorKind, bool) {
	kind := ActorKind(strings.ToUpper(strings.TrimSpace(raw)))
	switch kind {
	case ActorPatient, ActorStaff, ActorDoctor, ActorAdmin:
		return kind, true
	default:
		return "", false
	}
}

// Rank orders the review tiers. Patients have no review tier.
func (k ActorKind) Rank() int {
	switch k {
	case ActorStaff:
		return 1
	case ActorDoctor:
		return 2
	case ActorAdmin:
		return 3
	default:
		return 0
	}
}

func (a Actor) IsVerifier() bool {
	return a.Kind.Rank() > 0
}

func (a Actor) Valid() bool {
	_, ok := ParseActorKind(string(a.Kind))
	return ok && strings.TrimSpace(a.ID) != ""
}
