package model

import (
	"encoding/json"
	"strings"
)

// Operation is one line of a scenario script.
type Operation struct {
	Op      string `json:"op"`
	Account string `json:"account,omitempty"`
	Asset   string `json:"asset,omitempty"`
	Spender string `json:"spender,omitempty"`
	Amount  string `json:"amount,omitempty"`
	AmountB string `json:"amount_b,omitempty"`
	Shares  string `json:"shares,omitempty"`
	MinOut  string `json:"min_out,omitempty"`
}

// UnmarshalJSON decodes an Operation and normalizes the op and asset names.
func (o *Operation) UnmarshalJSON(data []byte) error {
	type Alias Operation
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	a.Op = strings.ToLower(strings.TrimSpace(a.Op))
	a.Asset = strings.ToUpper(strings.TrimSpace(a.Asset))
	*o = Operation(a)
	return nil
}

// OperationResult is the outcome of replaying one Operation.
type OperationResult struct {
	Line      int             `json:"line"`
	Op        string          `json:"op"`
	Account   string          `json:"account,omitempty"`
	OK        bool            `json:"ok"`
	Error     string          `json:"error,omitempty"`
	Output    json.RawMessage `json:"output,omitempty"`
	Timestamp string          `json:"timestamp"`
}
