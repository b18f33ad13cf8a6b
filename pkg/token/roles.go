package token

// Account roles carried in the role claim.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Project roles held in memberships. Only owners and members may work on a
// project's boards.
const (
	RoleOwner = "owner"
	RoleGuest = "guest"
)
