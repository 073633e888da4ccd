// Package access holds the authorization predicates composed by the HTTP
// handlers. The caller is always passed in explicitly.
package access

import "net/http"

// Caller is the identity a request acts as.
type Caller struct {
	UserID   int64
	Elevated bool
	Active   bool
}

// Anonymous is the caller of a request without credentials.
var Anonymous = Caller{}

// Authenticated reports whether the caller is a known, active account.
func (c Caller) Authenticated() bool {
	return c.UserID > 0 && c.Active
}

// ReadOnly reports whether method cannot modify state.
func ReadOnly(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// Elevated is true iff the caller's account has elevated privileges.
func Elevated(c Caller) bool {
	return c.Authenticated() && c.Elevated
}

// ElevatedOrReadOnly allows any read and restricts writes to elevated callers.
func ElevatedOrReadOnly(c Caller, method string) bool {
	return ReadOnly(method) || Elevated(c)
}

// OwnerOrReadOnly allows any read and restricts writes to the owner of the
// record.
func OwnerOrReadOnly(c Caller, method string, ownerID int64) bool {
	return ReadOnly(method) || (c.Authenticated() && c.UserID == ownerID)
}
