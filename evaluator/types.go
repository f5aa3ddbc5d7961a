package evaluator

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Criterion is one scoring dimension and the guidance a judge receives
// for it.
type Criterion struct {
	Name        string
	Description string
}

// Criteria is an ordered list of scoring dimensions. It marshals as a
// JSON object of name to description; order is preserved on both
// marshal and unmarshal, which map-typed criteria cannot guarantee.
type Criteria []Criterion

func (c Criteria) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, crit := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(crit.Name)
		if err != nil {
			return nil, err
		}
		desc, err := json.Marshal(crit.Description)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(desc)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *Criteria) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("criteria: expected JSON object, got %v", tok)
	}

	out := Criteria{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("criteria: non-string key %v", keyTok)
		}
		var desc string
		if err := dec.Decode(&desc); err != nil {
			return fmt.Errorf("criteria %q: %w", name, err)
		}
		out = append(out, Criterion{Name: name, Description: desc})
	}
	*c = out
	return nil
}

// Names returns the dimension names in order.
func (c Criteria) Names() []string {
	names := make([]string, len(c))
	for i, crit := range c {
		names[i] = crit.Name
	}
	return names
}

// DefaultCriteria returns the standard scoring dimensions.
func DefaultCriteria() Criteria {
	return Criteria{
		{Name: "accuracy", Description: "How factually correct is the response compared to the expected output?"},
		{Name: "completeness", Description: "Does the response cover everything the expected output covers?"},
		{Name: "relevance", Description: "Does the response stay on the task without digressions?"},
		{Name: "clarity", Description: "Is the response well organized and easy to follow?"},
	}
}

// EfficiencyDimension is the dimension name for prompt-size scoring.
// It is computed locally from the prompt, never asked of a judge.
const EfficiencyDimension = "efficiency"

// Task is one scoring job: a response produced by some prompt, judged
// against the expected output for the input that produced it.
type Task struct {
	Prompt   string `json:"prompt,omitempty"`
	Input    string `json:"input,omitempty"`
	Expected string `json:"expected"`
	Response string `json:"response"`
}

// Evaluation is the scored outcome of one task. Every dimension score
// and the overall score lie in [0, 100]. Fallback marks scores from
// the deterministic local path; when a judge was attempted first,
// Error carries the reason it was abandoned.
type Evaluation struct {
	Scores   map[string]float64 `json:"scores"`
	Overall  float64            `json:"overall"`
	Feedback string             `json:"feedback,omitempty"`
	Fallback bool               `json:"fallback,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// judgeReply is the exact shape a judge endpoint is instructed to
// return.
type judgeReply struct {
	Scores   map[string]float64 `json:"scores" validate:"required"`
	Feedback string             `json:"feedback"`
}
