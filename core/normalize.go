package core

import (
	qb "timedock.com/timedock/quickbooks/v1"
	"timedock.com/timedock/utils"
)

// Employee is the normalized shape handed to callers. Absent remote fields
// stay nil rather than collapsing to empty strings, so consumers can tell
// "not set" from "set to empty".
type Employee struct {
	QuickBooksID *string `json:"quickbooks_id"`
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	DisplayName  *string `json:"display_name"`
	Email        *string `json:"email"`
	PhoneNumber  *string `json:"phone_number"`
	PhoneCode    *string `json:"phone_code"`
	Active       bool    `json:"active"`
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return utils.Ptr(s)
}

// NormalizeEmployee maps a raw remote record into the normalized shape,
// splitting the free-form phone into calling code and national number.
func NormalizeEmployee(dto *qb.EmployeeDTO) Employee {
	emp := Employee{
		QuickBooksID: nonEmpty(dto.ID),
		FirstName:    nonEmpty(dto.GivenName),
		LastName:     nonEmpty(dto.FamilyName),
		DisplayName:  nonEmpty(dto.DisplayName),
		Active:       dto.Active == nil || *dto.Active,
	}
	if dto.PrimaryEmailAddr != nil {
		emp.Email = nonEmpty(dto.PrimaryEmailAddr.Address)
	}
	if dto.PrimaryPhone != nil {
		emp.PhoneCode, emp.PhoneNumber = SplitPhone(dto.PrimaryPhone.FreeFormNumber)
	}
	return emp
}
