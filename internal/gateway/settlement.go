package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fjordbank/core/internal/model"
)

// Result is the settlement network's answer for one external transfer.
// Accepted=false is a terminal decline; transport failures are returned as
// errors and may be retried.
type Result struct {
	Accepted  bool   `json:"accepted"`
	Reference string `json:"reference,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Settlement submits external transfers to the partner settlement network
type Settlement interface {
	Settle(ctx context.Context, transfer *model.Transfer) (*Result, error)
}

// HTTPSettlement talks to the settlement network over its REST API
type HTTPSettlement struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSettlement creates a settlement client for the given endpoint
func NewHTTPSettlement(baseURL string, timeout time.Duration) *HTTPSettlement {
	return &HTTPSettlement{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type settleRequest struct {
	Reference       string `json:"reference"`
	AccountNumber   string `json:"account_number"`
	BankCode        string `json:"bank_code"`
	BeneficiaryName string `json:"beneficiary_name"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
}

// Settle submits the transfer and decodes the network's verdict
func (s *HTTPSettlement) Settle(ctx context.Context, transfer *model.Transfer) (*Result, error) {
	if transfer.Beneficiary == nil {
		return nil, fmt.Errorf("transfer %s has no beneficiary", transfer.ID)
	}

	body, err := json.Marshal(settleRequest{
		Reference:       transfer.ReferenceNumber,
		AccountNumber:   transfer.Beneficiary.AccountNumber,
		BankCode:        transfer.Beneficiary.BankCode,
		BeneficiaryName: transfer.Beneficiary.BeneficiaryName,
		Amount:          transfer.Amount.String(),
		Currency:        transfer.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settlement request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/settlements", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build settlement request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("settlement network unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var result Result
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode settlement response: %w", err)
		}
		return &result, nil
	case resp.StatusCode == http.StatusUnprocessableEntity:
		// The network understood the request and rejected it. Terminal.
		var result Result
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return &Result{Accepted: false, Reason: "settlement rejected"}, nil
		}
		result.Accepted = false
		return &result, nil
	default:
		return nil, fmt.Errorf("settlement network returned status %d", resp.StatusCode)
	}
}
