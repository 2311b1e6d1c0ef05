package v1

import (
	"context"
	"encoding/json"
	"fmt"
)

type TimeActivityEndpoint struct {
	transport *Transport
}

func (e *TimeActivityEndpoint) Get(ctx context.Context, id string) (*TimeActivityDTO, error) {
	resp, err := e.transport.Get(ctx, "/timeactivity/"+id, nil)
	if err != nil {
		return nil, err
	}

	var env timeActivityEnvelope
	if err := json.Unmarshal(resp.Data, &env); err != nil {
		return nil, fmt.Errorf("decode time activity: %w", err)
	}
	return &env.TimeActivity, nil
}

// QueryRange lists activities whose TxnDate falls inside [from, to], newest
// first. The query language cannot filter on EmployeeRef, so callers narrow
// by employee client-side.
func (e *TimeActivityEndpoint) QueryRange(ctx context.Context, from, to string) ([]TimeActivityDTO, error) {
	expr := fmt.Sprintf(
		"SELECT * FROM TimeActivity WHERE TxnDate >= '%s' AND TxnDate <= '%s' ORDERBY TxnDate DESC",
		from, to,
	)

	result, err := e.transport.Query(ctx, expr)
	if err != nil {
		return nil, err
	}
	return result.TimeActivity, nil
}

func (e *TimeActivityEndpoint) Create(ctx context.Context, dto *TimeActivityDTO) (*TimeActivityDTO, error) {
	resp, err := e.transport.Post(ctx, "/timeactivity", dto, nil)
	if err != nil {
		return nil, err
	}

	var env timeActivityEnvelope
	if err := json.Unmarshal(resp.Data, &env); err != nil {
		return nil, fmt.Errorf("decode time activity: %w", err)
	}
	return &env.TimeActivity, nil
}

// Update replaces the record. Same SyncToken discipline as employees: a
// missing token is fetched just-in-time, a supplied one is trusted.
func (e *TimeActivityEndpoint) Update(ctx context.Context, dto *TimeActivityDTO) (*TimeActivityDTO, error) {
	if dto.ID == "" {
		return nil, fmt.Errorf("time activity update requires Id")
	}
	if dto.SyncToken == "" {
		current, err := e.Get(ctx, dto.ID)
		if err != nil {
			return nil, err
		}
		dto.SyncToken = current.SyncToken
	}

	resp, err := e.transport.Post(ctx, "/timeactivity", dto, nil)
	if err != nil {
		return nil, err
	}

	var env timeActivityEnvelope
	if err := json.Unmarshal(resp.Data, &env); err != nil {
		return nil, fmt.Errorf("decode time activity: %w", err)
	}
	return &env.TimeActivity, nil
}

// Delete issues the explicit delete operation the API supports for time
// activities, with a just-in-time SyncToken fetch.
func (e *TimeActivityEndpoint) Delete(ctx context.Context, id string) error {
	current, err := e.Get(ctx, id)
	if err != nil {
		return err
	}

	payload := &TimeActivityDTO{ID: id, SyncToken: current.SyncToken}
	_, err = e.transport.Post(ctx, "/timeactivity", payload, map[string]string{"operation": "delete"})
	return err
}
