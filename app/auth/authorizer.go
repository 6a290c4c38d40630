package auth

import (
	"fmt"

	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
)

// RoleAuthorizer grants access when the actor's tier rank is at least the
// required kind's rank. A PATIENT requirement is met by any valid actor.
type RoleAuthorizer struct{}

func NewRoleAuthorizer() *RoleAuthorizer {
	return &RoleAuthorizer{}
}

func (a *RoleAuthorizer) Authorize(actor entity.Actor, required entity.ActorKind) error {
	if !actor.Valid() {
		return fmt.Errorf("actor %q is not valid", actor.ID)
	}
	if actor.Kind.Rank() < required.Rank() {
		return fmt.Errorf("%s %s lacks %s access", actor.Kind, actor.ID, required)
	}
	return nil
}
