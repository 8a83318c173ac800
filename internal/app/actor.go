package app

import "storechat/internal/roles"

// Actor is the authenticated caller together with its platform roles.
type Actor struct {
	UserID uint
	Roles  []string
}

func (a Actor) Can(capability roles.Capability) bool {
	return roles.Can(a.Roles, capability)
}

func (a Actor) Has(role string) bool {
	return roles.Has(a.Roles, role)
}

// ChatPolicy holds the storefront's session assignment settings.
type ChatPolicy struct {
	AssignAgentMode    string
	AutoAssignMerchant bool
	AutoAssignDesigner bool
	DesignerMetaKey    string
	AutoJoinRoles      bool
}
