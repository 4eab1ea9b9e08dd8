package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/conformer/internal/harness"
	"github.com/roach88/conformer/internal/ir"
)

// marshalSteps converts step results to canonical JSON TEXT for storage.
// Empty optional fields are left out, matching the JSON tags of
// harness.StepResult so unmarshalSteps can read them back.
func marshalSteps(steps []harness.StepResult) (string, error) {
	list := make([]any, len(steps))
	for i, st := range steps {
		m := map[string]any{
			"text":   st.Text,
			"status": string(st.Status),
		}
		if st.Info != "" {
			m["info"] = string(st.Info)
		}
		if st.Error != "" {
			m["error"] = st.Error
		}
		if st.CleanupError != "" {
			m["cleanup_error"] = st.CleanupError
		}
		list[i] = m
	}
	data, err := ir.MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("marshal steps: %w", err)
	}
	return string(data), nil
}

// unmarshalSteps parses the steps column.
func unmarshalSteps(data string) ([]harness.StepResult, error) {
	if data == "" || data == "[]" {
		return []harness.StepResult{}, nil
	}
	var steps []harness.StepResult
	if err := json.Unmarshal([]byte(data), &steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}
	return steps, nil
}
