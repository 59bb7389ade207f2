package domain

import "fmt"

// Claim keys used by the identity provider.
const (
	// GlobalRolesClaim carries roles granted across every project.
	GlobalRolesClaim = "urn:zitadel:iam:org:project:roles"

	// projectRolesClaimFormat carries roles scoped to a single project.
	projectRolesClaimFormat = "urn:zitadel:iam:org:project:%s:roles"

	// OrgScopeFormat restricts an authorization request to one organization.
	OrgScopeFormat = "urn:zitadel:iam:org:id:%s"
)

// UserInfo is the identity provider's user-info payload, kept as a raw
// map so role claims with provider-specific keys stay reachable.
type UserInfo map[string]any

// Subject returns the "sub" claim, or "" when absent.
func (u UserInfo) Subject() string {
	return u.stringClaim("sub")
}

// Email returns the "email" claim, or "" when absent.
func (u UserInfo) Email() string {
	return u.stringClaim("email")
}

// HasPersonaRole reports whether the payload shows the persona's role,
// checking the global roles claim first and then the project-scoped one.
func (u UserInfo) HasPersonaRole(projectID string, persona Persona) bool {
	if u == nil || persona == "" {
		return false
	}
	if rolesContain(u[GlobalRolesClaim], persona) {
		return true
	}
	projectKey := fmt.Sprintf(projectRolesClaimFormat, projectID)
	return rolesContain(u[projectKey], persona)
}

func rolesContain(claim any, persona Persona) bool {
	roles, ok := claim.(map[string]any)
	if !ok {
		return false
	}
	_, ok = roles[string(persona)]
	return ok
}

func (u UserInfo) stringClaim(name string) string {
	v, ok := u[name]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
