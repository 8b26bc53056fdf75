package core

import "fieldpay/internal/domain/auth"

// FilterEmployeeFields hides the contractual salary from field officers.
func FilterEmployeeFields(emp *Employee, role string) {
	if role == auth.RoleAdmin || role == auth.RoleManager {
		return
	}
	emp.BaseSalary = nil
}
