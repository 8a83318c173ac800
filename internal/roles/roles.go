// Package roles maps platform roles to chat role slugs and capabilities.
package roles

import "storechat/internal/model"

// Platform roles as known to the storefront.
const (
	Administrator = "administrator"
	ShopManager   = "shop_manager"
	Agent         = "agent"
	Designer      = "designer"
	Customer      = "customer"
)

type Capability string

const (
	CapView   Capability = "chat_view"
	CapSend   Capability = "chat_send"
	CapManage Capability = "chat_manage"
)

type chatRoleRule struct {
	platform string
	chat     string
}

// chatRoleTable is evaluated top to bottom; the first platform role the user
// holds decides their chat role.
var chatRoleTable = []chatRoleRule{
	{Administrator, model.RoleAgent},
	{ShopManager, model.RoleMerchant},
	{Agent, model.RoleAgent},
	{Designer, model.RoleDesigner},
	{Customer, model.RoleBuyer},
}

var capabilityTable = map[string][]Capability{
	Administrator: {CapView, CapSend, CapManage},
	ShopManager:   {CapView, CapSend, CapManage},
	Agent:         {CapView, CapSend, CapManage},
	Designer:      {CapView, CapSend},
	Customer:      {CapView, CapSend},
}

// ChatRoleFor returns the chat role slug for a user holding the given platform
// roles. Users matching no rule chat as buyers.
func ChatRoleFor(platformRoles []string) string {
	for _, rule := range chatRoleTable {
		if Has(platformRoles, rule.platform) {
			return rule.chat
		}
	}
	return model.RoleBuyer
}

// Can reports whether any of the platform roles grants capability.
func Can(platformRoles []string, capability Capability) bool {
	for _, role := range platformRoles {
		for _, c := range capabilityTable[role] {
			if c == capability {
				return true
			}
		}
	}
	return false
}

func Has(platformRoles []string, role string) bool {
	for _, r := range platformRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Valid reports whether role is a platform role this service understands.
func Valid(role string) bool {
	_, ok := capabilityTable[role]
	return ok
}
