package model

// RoleAdministrator is the JWT role claim that bypasses every release
// gate and unlocks the check-in endpoints.
const RoleAdministrator = "ADMIN"

// Requester describes who issued a request. Tokens are minted by the
// authentication service; this service only reads the subject and role
// claims. A request without a token is a guest with UserID 0.
//
// Fields:
//  UserID – subject claim of the access token (0 for guests).
//  Role   – role claim of the access token (empty for guests).
type Requester struct {
	UserID uint64
	Role   string
}

// IsAdministrator reports whether gating should be bypassed.
func (r Requester) IsAdministrator() bool { return r.Role == RoleAdministrator }
