package assign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Request asks the assignment service to propose an assignee for a case.
type Request struct {
	CaseID         uuid.UUID              `json:"case_id"`
	OrganizationID uuid.UUID              `json:"organization_id"`
	Criteria       map[string]interface{} `json:"criteria,omitempty"`
	Actor          string                 `json:"actor"`
	Options        map[string]interface{} `json:"options,omitempty"`
}

type Result struct {
	Success    bool   `json:"success"`
	AssignedTo string `json:"assigned_to,omitempty"`
	Role       string `json:"role,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Assigner proposes an assignee for a case. The matching logic lives in a
// separate service.
type Assigner interface {
	AutoAssign(ctx context.Context, req Request) (Result, error)
}

// HTTPAssigner calls the assignment service over HTTP.
type HTTPAssigner struct {
	baseURL string
	client  *http.Client
}

func NewHTTPAssigner(baseURL string, timeout time.Duration) *HTTPAssigner {
	return &HTTPAssigner{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *HTTPAssigner) AutoAssign(ctx context.Context, req Request) (Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/v1/assignments", bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("assignment service returned %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, err
	}
	return result, nil
}
