// Package auth resolves the authenticated caller of a request.
//
// An Identity is resolved once per request from a signed bearer token and
// then passed explicitly to every mutating operation. Nothing in this
// package keeps ambient session state.
package auth

// Identity is the authenticated caller acting on a request.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Anonymous is the zero Identity: no authenticated caller.
var Anonymous = Identity{}

// IsAnonymous reports whether no caller is authenticated.
func (i Identity) IsAnonymous() bool {
	return i.UserID == ""
}

// Owns reports whether the caller is the owner identified by ownerID.
func (i Identity) Owns(ownerID string) bool {
	return !i.IsAnonymous() && i.UserID == ownerID
}
