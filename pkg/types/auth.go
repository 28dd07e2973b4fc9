package types

type Role string

const (
	RoleCitizen   Role = "citizen"
	RoleAuthority Role = "authority"
	RoleWorker    Role = "worker"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleCitizen, RoleAuthority, RoleWorker:
		return true
	}
	return false
}

// Identity is the authenticated caller extracted from a verified token.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}
