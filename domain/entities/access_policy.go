package entities

// AccessPolicy is the explicit admin set injected into the pool facade
// at construction. It replaces any ambient global role state: mutation
// happens only through the methods below, always under the facade's
// serialization lock.
type AccessPolicy struct {
	admins map[int64]struct{}
}

// NewAccessPolicy builds a policy from the initial admin account ids.
func NewAccessPolicy(adminIDs []int64) AccessPolicy {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		if id != NoAccount {
			admins[id] = struct{}{}
		}
	}
	return AccessPolicy{admins: admins}
}

// IsAdmin reports whether the account may perform administrative
// operations (lock, reward, fee changes, pausing deposits).
func (p AccessPolicy) IsAdmin(accountID int64) bool {
	_, ok := p.admins[accountID]
	return ok
}

// Grant adds an admin.
func (p AccessPolicy) Grant(accountID int64) {
	if accountID != NoAccount {
		p.admins[accountID] = struct{}{}
	}
}

// Revoke removes an admin.
func (p AccessPolicy) Revoke(accountID int64) {
	delete(p.admins, accountID)
}
