package store

import (
	"fmt"

	"github.com/sugawarayuuta/sonnet"

	"github.com/roach88/tbench/internal/harness"
)

// eventPayload holds the TraceEvent fields that have no column of their own.
type eventPayload struct {
	Values   []uint64 `json:"values,omitempty"`
	Expected string   `json:"expected,omitempty"`
	Match    bool     `json:"match,omitempty"`
	From     string   `json:"from,omitempty"`
	Message  string   `json:"message,omitempty"`
}

func marshalPayload(ev harness.TraceEvent) (string, error) {
	data, err := sonnet.Marshal(eventPayload{
		Values:   ev.Values,
		Expected: ev.Expected,
		Match:    ev.Match,
		From:     ev.From,
		Message:  ev.Message,
	})
	if err != nil {
		return "", fmt.Errorf("marshal event payload: %w", err)
	}
	return string(data), nil
}

func unmarshalPayload(data string, ev *harness.TraceEvent) error {
	if data == "" || data == "{}" {
		return nil
	}
	var p eventPayload
	if err := sonnet.Unmarshal([]byte(data), &p); err != nil {
		return fmt.Errorf("unmarshal event payload: %w", err)
	}
	ev.Values = p.Values
	ev.Expected = p.Expected
	ev.Match = p.Match
	ev.From = p.From
	ev.Message = p.Message
	return nil
}

func marshalParams(params map[string]int64) (string, error) {
	if len(params) == 0 {
		return "{}", nil
	}
	data, err := sonnet.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(data), nil
}

func unmarshalParams(data string) (map[string]int64, error) {
	params := make(map[string]int64)
	if data == "" || data == "{}" {
		return params, nil
	}
	if err := sonnet.Unmarshal([]byte(data), &params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	return params, nil
}

func marshalErrors(errs []string) (string, error) {
	if len(errs) == 0 {
		return "[]", nil
	}
	data, err := sonnet.Marshal(errs)
	if err != nil {
		return "", fmt.Errorf("marshal errors: %w", err)
	}
	return string(data), nil
}

func unmarshalErrors(data string) ([]string, error) {
	errs := []string{}
	if data == "" || data == "[]" {
		return errs, nil
	}
	if err := sonnet.Unmarshal([]byte(data), &errs); err != nil {
		return nil, fmt.Errorf("unmarshal errors: %w", err)
	}
	return errs, nil
}
