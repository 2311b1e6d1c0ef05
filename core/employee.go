package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	qb "timedock.com/timedock/quickbooks/v1"
	"timedock.com/timedock/utils"
)

type EmployeeInput struct {
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	DisplayName *string `json:"display_name"`
	Email       *string `json:"email"`
	PhoneCode   *string `json:"phone_code"`
	PhoneNumber *string `json:"phone_number"`
}

func (in EmployeeInput) dto() *qb.EmployeeDTO {
	dto := &qb.EmployeeDTO{
		GivenName:  in.FirstName,
		FamilyName: in.LastName,
	}
	if in.DisplayName != nil {
		dto.DisplayName = *in.DisplayName
	}
	if in.Email != nil {
		dto.PrimaryEmailAddr = &qb.EmailAddressDTO{Address: *in.Email}
	}
	if in.PhoneNumber != nil {
		dto.PrimaryPhone = &qb.TelephoneNumberDTO{FreeFormNumber: JoinPhone(in.PhoneCode, in.PhoneNumber)}
	}
	return dto
}

// ListEmployees pulls every employee record and returns them normalized.
func (s *Service) ListEmployees(ctx context.Context, tenant string) ([]Employee, error) {
	var employees []Employee
	err := s.withClient(ctx, tenant, func(c *qb.QuickBooksClient) error {
		dtos, err := c.Employees.Query(ctx, "")
		if err != nil {
			return err
		}
		employees = utils.Map(dtos, func(dto qb.EmployeeDTO) Employee {
			return NormalizeEmployee(&dto)
		})
		return nil
	})
	return employees, err
}

func (s *Service) GetEmployee(ctx context.Context, tenant, id string) (*Employee, error) {
	var employee *Employee
	err := s.withClient(ctx, tenant, func(c *qb.QuickBooksClient) error {
		dto, err := c.Employees.Get(ctx, id)
		if err != nil {
			return err
		}
		emp := NormalizeEmployee(dto)
		employee = &emp
		return nil
	})
	return employee, err
}

func (s *Service) CreateEmployee(ctx context.Context, tenant string, in EmployeeInput) (*Employee, error) {
	if in.FirstName == "" && in.LastName == "" && in.DisplayName == nil {
		return nil, fmt.Errorf("employee needs a name")
	}

	var employee *Employee
	err := s.withClient(ctx, tenant, func(c *qb.QuickBooksClient) error {
		created, err := c.Employees.Create(ctx, in.dto())
		if err != nil {
			return err
		}
		emp := NormalizeEmployee(created)
		employee = &emp
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("employee created",
		zap.String("tenant", tenant),
		zap.Stringp("id", employee.QuickBooksID))
	return employee, nil
}

// UpdateEmployee writes only the supplied fields; everything else on the
// remote record is left alone.
func (s *Service) UpdateEmployee(ctx context.Context, tenant, id string, in EmployeeInput) (*Employee, error) {
	var employee *Employee
	err := s.withClient(ctx, tenant, func(c *qb.QuickBooksClient) error {
		dto := in.dto()
		dto.ID = id
		updated, err := c.Employees.Update(ctx, dto)
		if err != nil {
			return err
		}
		emp := NormalizeEmployee(updated)
		employee = &emp
		return nil
	})
	return employee, err
}

// DeactivateEmployee flips the record inactive. Employees are never hard
// deleted remotely.
func (s *Service) DeactivateEmployee(ctx context.Context, tenant, id string) error {
	err := s.withClient(ctx, tenant, func(c *qb.QuickBooksClient) error {
		_, err := c.Employees.Deactivate(ctx, id)
		return err
	})
	if err != nil {
		return err
	}

	s.log.Info("employee deactivated", zap.String("tenant", tenant), zap.String("id", id))
	return nil
}
