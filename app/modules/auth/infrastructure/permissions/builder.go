package permissions

import (
	authdomain "github.com/matchops/matchops/app/modules/auth/domain"
	persistencenotify "github.com/matchops/matchops/app/modules/persistence/infrastructure/notify"
)

// Permissions defines pub/sub permissions for a user.
type Permissions struct {
	Publish   PermissionSet `json:"pub"`
	Subscribe PermissionSet `json:"sub"`
}

// PermissionSet contains allow and deny patterns.
type PermissionSet struct {
	Allow []string `json:"allow,omitempty"`
	Deny  []string `json:"deny,omitempty"`
}

// Builder constructs sync permissions for a subject prefix.
type Builder struct {
	prefix string
}

// NewBuilder creates a new permission builder for change subjects under prefix.
func NewBuilder(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// ForRole builds permissions based on the user's claims. Every role may
// follow its own change subject; only writing roles may announce changes.
func (b *Builder) ForRole(claims *authdomain.Claims) *Permissions {
	subject := persistencenotify.Subject(b.prefix, claims.UserID)

	perms := &Permissions{
		Subscribe: PermissionSet{
			Allow: []string{subject, "_INBOX.>"},
		},
		Publish: PermissionSet{
			Allow: []string{},
			Deny:  []string{b.prefix + ".>"},
		},
	}
	if claims.Role.CanWrite() {
		perms.Publish.Allow = []string{subject}
		perms.Publish.Deny = nil
	}
	return perms
}
