package auth

// Capability identifies one permitted API action. Capabilities are grouped
// into roles by the static rights table below; the table is read-only after
// process start.
type Capability string

const (
	// CapabilityAll is the wildcard granting every capability.
	CapabilityAll Capability = "*"

	CapGetUsers    Capability = "getUsers"
	CapCreateUsers Capability = "createUsers"
	CapManageUsers Capability = "manageUsers"
	CapDeleteUsers Capability = "deleteUsers"
)

// roleRights is the role → rights lookup table. Exhaustive over all roles so
// that Rights never consults a missing entry.
var roleRights = map[Role][]Capability{
	RoleSuperAdmin: {CapabilityAll, CapGetUsers, CapCreateUsers, CapManageUsers, CapDeleteUsers},
	RoleAdmin:      {CapGetUsers, CapCreateUsers, CapManageUsers, CapDeleteUsers},
	RoleEmployee:   {CapGetUsers},
	RoleClient:     {CapGetUsers},
	RoleVendor:     {CapGetUsers},
	RoleUser:       {CapGetUsers},
}

// Rights returns the capabilities granted to a role. Unknown roles get none.
func Rights(role Role) []Capability {
	rights, ok := roleRights[role]
	if !ok {
		return nil
	}
	out := make([]Capability, len(rights))
	copy(out, rights)
	return out
}

// HasRights reports whether a role grants every required capability.
// The wildcard in a role's rights set satisfies any requirement.
func HasRights(role Role, required ...Capability) bool {
	if len(required) == 0 {
		return true
	}
	rights, ok := roleRights[role]
	if !ok {
		return false
	}
	granted := make(map[Capability]bool, len(rights))
	for _, c := range rights {
		granted[c] = true
	}
	if granted[CapabilityAll] {
		return true
	}
	for _, req := range required {
		if !granted[req] {
			return false
		}
	}
	return true
}
