// Package policy decides who may see and change a task.
//
// Admins may act on every task. Everyone else may only act on the tasks
// they own. The same rule is applied to complete, incomplete and delete.
package policy

import "github.com/riwart/taskr/internal/model"

// CanMutate reports whether caller may change a task owned by ownerID.
func CanMutate(caller model.Caller, ownerID int64) bool {
	if caller.IsAnonymous() {
		return false
	}
	switch caller.Role {
	case model.RoleAdmin:
		return true
	case model.RoleUser:
		return caller.UserID == ownerID
	default:
		return false
	}
}

// AuthorizeMutation returns model.ErrAuthRequired for anonymous callers and
// model.ErrForbidden when the caller may not change t.
func AuthorizeMutation(caller model.Caller, t model.Task) error {
	if caller.IsAnonymous() {
		return model.ErrAuthRequired
	}
	if !CanMutate(caller, t.OwnerID) {
		return model.ErrForbidden
	}
	return nil
}

// AuthorizeView applies the mutation rule to single task reads.
func AuthorizeView(caller model.Caller, t model.Task) error {
	return AuthorizeMutation(caller, t)
}

// ListScope returns the owner a listing must be restricted to. all is true
// when the caller may see every task.
func ListScope(caller model.Caller) (ownerID int64, all bool) {
	switch caller.Role {
	case model.RoleAdmin:
		return 0, true
	default:
		return caller.UserID, false
	}
}
