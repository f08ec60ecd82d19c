package memory

import (
	"context"
	"sync"

	"diagramsync/domain/core/valueobjects"
)

// MembershipResolver is a static role table. Identities without an explicit
// role get the default role, if one is configured.
type MembershipResolver struct {
	mu          sync.RWMutex
	roles       map[string]map[string]valueobjects.Role
	defaultRole valueobjects.Role
}

// NewMembershipResolver creates a resolver. An empty defaultRole makes unknown identities non-members.
func NewMembershipResolver(defaultRole valueobjects.Role) *MembershipResolver {
	return &MembershipResolver{
		roles:       make(map[string]map[string]valueobjects.Role),
		defaultRole: defaultRole,
	}
}

// SetRole assigns identity's role on a project
func (r *MembershipResolver) SetRole(projectID, identity string, role valueobjects.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.roles[projectID]
	if !ok {
		members = make(map[string]valueobjects.Role)
		r.roles[projectID] = members
	}
	members[identity] = role
}

// RemoveMember drops identity's explicit role on a project
func (r *MembershipResolver) RemoveMember(projectID, identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.roles[projectID], identity)
}

// ResolveRole implements ports.MembershipResolver
func (r *MembershipResolver) ResolveRole(ctx context.Context, projectID, identity string) (valueobjects.Role, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if role, ok := r.roles[projectID][identity]; ok {
		return role, true, nil
	}
	if r.defaultRole != "" {
		return r.defaultRole, true, nil
	}
	return "", false, nil
}

// IdentityProvisioner records identities in memory
type IdentityProvisioner struct {
	mu         sync.Mutex
	identities map[string]struct{}
}

// NewIdentityProvisioner creates an empty provisioner
func NewIdentityProvisioner() *IdentityProvisioner {
	return &IdentityProvisioner{identities: make(map[string]struct{})}
}

// EnsureExists implements ports.IdentityProvisioner
func (p *IdentityProvisioner) EnsureExists(ctx context.Context, identity string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.identities[identity] = struct{}{}
	return nil
}

// Exists reports whether identity has been provisioned
func (p *IdentityProvisioner) Exists(identity string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.identities[identity]
	return ok
}
