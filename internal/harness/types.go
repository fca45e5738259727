package harness

import "fmt"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every chain passed.
	Pass bool `json:"pass"`

	// Chains holds per-chain outcomes in scenario order.
	Chains []ChainResult `json:"chains"`

	// Errors collects every chain error, prefixed with the chain name.
	Errors []string `json:"errors,omitempty"`
}

// ChainResult is the outcome of one chain.
type ChainResult struct {
	Name string `json:"name"`

	// SQL is the compiled SELECT statement. Empty if compilation failed.
	SQL string `json:"sql,omitempty"`

	// IDs are the primary keys returned, in order.
	IDs []string `json:"ids"`

	Count  int64    `json:"count"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Chains: []ChainResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddChain records a chain outcome and folds its errors into the result.
func (r *Result) AddChain(c ChainResult) {
	r.Chains = append(r.Chains, c)
	for _, e := range c.Errors {
		r.AddError(fmt.Sprintf("chain %q: %s", c.Name, e))
	}
}

func (c *ChainResult) fail(format string, args ...any) {
	c.Errors = append(c.Errors, fmt.Sprintf(format, args...))
	c.Pass = false
}
