package v1

import (
	"context"
	"encoding/json"
	"fmt"
)

type EmployeeEndpoint struct {
	transport *Transport
}

func (e *EmployeeEndpoint) Get(ctx context.Context, id string) (*EmployeeDTO, error) {
	resp, err := e.transport.Get(ctx, "/employee/"+id, nil)
	if err != nil {
		return nil, err
	}

	var env employeeEnvelope
	if err := json.Unmarshal(resp.Data, &env); err != nil {
		return nil, fmt.Errorf("decode employee: %w", err)
	}
	return &env.Employee, nil
}

// Query lists employees matching an optional WHERE clause, e.g.
// "Active = true". An empty clause lists everything.
func (e *EmployeeEndpoint) Query(ctx context.Context, where string) ([]EmployeeDTO, error) {
	expr := "SELECT * FROM Employee"
	if where != "" {
		expr += " WHERE " + where
	}

	result, err := e.transport.Query(ctx, expr)
	if err != nil {
		return nil, err
	}
	return result.Employee, nil
}

func (e *EmployeeEndpoint) Create(ctx context.Context, dto *EmployeeDTO) (*EmployeeDTO, error) {
	resp, err := e.transport.Post(ctx, "/employee", dto, nil)
	if err != nil {
		return nil, err
	}

	var env employeeEnvelope
	if err := json.Unmarshal(resp.Data, &env); err != nil {
		return nil, fmt.Errorf("decode employee: %w", err)
	}
	return &env.Employee, nil
}

// Update posts a sparse update. When the caller did not supply a SyncToken
// the current one is fetched first; a caller-supplied token is trusted
// as-is. A stale token surfaces as ErrConflict, never a silent retry.
func (e *EmployeeEndpoint) Update(ctx context.Context, dto *EmployeeDTO) (*EmployeeDTO, error) {
	if dto.ID == "" {
		return nil, fmt.Errorf("employee update requires Id")
	}
	if dto.SyncToken == "" {
		current, err := e.Get(ctx, dto.ID)
		if err != nil {
			return nil, err
		}
		dto.SyncToken = current.SyncToken
	}
	dto.Sparse = true

	resp, err := e.transport.Post(ctx, "/employee", dto, nil)
	if err != nil {
		return nil, err
	}

	var env employeeEnvelope
	if err := json.Unmarshal(resp.Data, &env); err != nil {
		return nil, fmt.Errorf("decode employee: %w", err)
	}
	return &env.Employee, nil
}

// Deactivate is the soft delete: the API has no hard delete for employees,
// so Active flips to false while the SyncToken chain is preserved.
func (e *EmployeeEndpoint) Deactivate(ctx context.Context, id string) (*EmployeeDTO, error) {
	current, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	inactive := false
	update := &EmployeeDTO{
		ID:         id,
		SyncToken:  current.SyncToken,
		GivenName:  current.GivenName,
		FamilyName: current.FamilyName,
		Active:     &inactive,
		Sparse:     true,
	}

	resp, err := e.transport.Post(ctx, "/employee", update, nil)
	if err != nil {
		return nil, err
	}

	var env employeeEnvelope
	if err := json.Unmarshal(resp.Data, &env); err != nil {
		return nil, fmt.Errorf("decode employee: %w", err)
	}
	return &env.Employee, nil
}
