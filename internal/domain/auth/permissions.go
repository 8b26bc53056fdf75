package auth

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleOfficer = "officer"
)

const (
	PermOrgRead          = "core.org.read"
	PermOrgWrite         = "core.org.write"
	PermEmployeesRead    = "core.employees.read"
	PermEmployeesWrite   = "core.employees.write"
	PermRatesWrite       = "core.rates.write"
	PermCollectionsRead  = "collections.read"
	PermCollectionsWrite = "collections.write"
	PermSheetsRead       = "sheets.read"
	PermSheetsWrite      = "sheets.write"
	PermSheetsRun        = "sheets.run"
	PermSheetsFinalize   = "sheets.finalize"
	PermReportsRead      = "reports.read"
	PermAuditRead        = "audit.read"
	PermUsersWrite       = "users.write"
)

var DefaultPermissions = []string{
	PermOrgRead,
	PermOrgWrite,
	PermEmployeesRead,
	PermEmployeesWrite,
	PermRatesWrite,
	PermCollectionsRead,
	PermCollectionsWrite,
	PermSheetsRead,
	PermSheetsWrite,
	PermSheetsRun,
	PermSheetsFinalize,
	PermReportsRead,
	PermAuditRead,
	PermUsersWrite,
}

var RolePermissions = map[string][]string{
	RoleOfficer: {
		PermOrgRead,
		PermEmployeesRead,
		PermCollectionsRead,
		PermCollectionsWrite,
		PermSheetsRead,
	},
	RoleManager: {
		PermOrgRead,
		PermEmployeesRead,
		PermEmployeesWrite,
		PermCollectionsRead,
		PermCollectionsWrite,
		PermSheetsRead,
		PermSheetsWrite,
		PermSheetsRun,
		PermReportsRead,
	},
	RoleAdmin: DefaultPermissions,
}

func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}

// HasPermission checks the static role table.
func HasPermission(role, perm string) bool {
	for _, p := range RolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
