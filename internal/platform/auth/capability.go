// Package auth resolves the acting user and answers permission checks
// through an enumerated role-capability set rather than role-name string
// matching, so workflow code never hard-codes role labels.
package auth

// Role classifies an actor. Reception staff handle orders and payments,
// technicians enter results, supervisors validate them, admins can do
// everything.
type Role string

const (
	RoleReception  Role = "reception"
	RoleTechnician Role = "technician"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

// Capability is a single permitted action inside the fulfillment and
// billing workflows.
type Capability string

const (
	CapManageOrders    Capability = "orders:manage"
	CapRecordPayments  Capability = "payments:record"
	CapRegisterSamples Capability = "samples:register"
	CapEnterResults    Capability = "results:enter"
	CapSubmitResults   Capability = "results:submit"
	CapRejectResults   Capability = "results:reject"
	CapValidateResults Capability = "results:validate"
	CapIssueInvoices   Capability = "invoices:issue"
)

var roleCapabilities = map[Role]map[Capability]bool{
	RoleReception: {
		CapManageOrders:   true,
		CapRecordPayments: true,
		CapIssueInvoices:  true,
	},
	RoleTechnician: {
		CapRegisterSamples: true,
		CapEnterResults:    true,
		CapSubmitResults:   true,
	},
	RoleSupervisor: {
		CapManageOrders:    true,
		CapRecordPayments:  true,
		CapRegisterSamples: true,
		CapEnterResults:    true,
		CapSubmitResults:   true,
		CapRejectResults:   true,
		CapValidateResults: true,
		CapIssueInvoices:   true,
	},
}

// Has reports whether role grants capability. Admin holds every
// capability.
func Has(role Role, capability Capability) bool {
	if role == RoleAdmin {
		return true
	}
	return roleCapabilities[role][capability]
}

// Valid reports whether role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleReception, RoleTechnician, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}
