package harness

// TraceEvent records one executed step.
//
// Args are the step arguments as written in the scenario, labels
// unresolved. Ids in Result are rendered as labels: the label a step saved
// them under, or "#n" in order of first appearance for ids nobody labeled.
type TraceEvent struct {
	Seq    int64          `json:"seq"`
	Op     string         `json:"op"`
	Args   map[string]any `json:"args,omitempty"`
	Result map[string]any `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success.
	// True if every step matched its expectation and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per executed step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Labels maps every saved label to its id.
	Labels map[string]string `json:"labels,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Labels: make(map[string]string),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event with the next sequence number.
func (r *Result) AddTrace(op string, args, result map[string]any, errCode string) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:    int64(len(r.Trace) + 1),
		Op:     op,
		Args:   args,
		Result: result,
		Error:  errCode,
	})
}
