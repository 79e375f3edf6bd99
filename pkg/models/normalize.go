package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NormalizeRawAction converts a loosely shaped model-emitted action into a
// canonical Action. Planners return strings, lists, and dicts with
// synonymous keys; everything funnels into the canonical schema here so
// downstream stages never see raw model output.
func NormalizeRawAction(raw any) Action {
	switch v := raw.(type) {
	case string:
		task := strings.TrimSpace(v)
		return Action{
			Type:       ActionCreateTask,
			Task:       truncate(task, 512),
			Details:    map[string]any{"task": task},
			Reason:     "converted from string action",
			Confidence: 0.6,
		}
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			switch it := item.(type) {
			case string:
				parts = append(parts, strings.TrimSpace(it))
			case map[string]any:
				if s, ok := it["action"].(string); ok {
					parts = append(parts, s)
				} else if s, ok := it["title"].(string); ok {
					parts = append(parts, s)
				} else {
					b, _ := json.Marshal(it)
					parts = append(parts, string(b))
				}
			default:
				parts = append(parts, fmt.Sprint(it))
			}
		}
		combined := truncate(strings.Join(parts, " | "), 800)
		return Action{
			Type:       ActionCreateTask,
			Task:       combined,
			Details:    map[string]any{"task": combined},
			Reason:     "converted from list of actions",
			Confidence: 0.6,
		}
	case map[string]any:
		return normalizeActionMap(v)
	default:
		s := fmt.Sprint(raw)
		return Action{
			Type:       ActionCreateTask,
			Task:       truncate(s, 512),
			Details:    map[string]any{"task": s},
			Reason:     "converted fallback action",
			Confidence: 0.5,
		}
	}
}

func normalizeActionMap(raw map[string]any) Action {
	rawType := firstString(raw, "action_type", "type", "action")

	a := Action{
		Type:       NormalizeActionType(rawType),
		Reason:     firstString(raw, "reason", "summary", "title"),
		Confidence: 0.5,
		Details:    map[string]any{},
	}
	if c, ok := toFloat(raw["confidence"]); ok {
		a.Confidence = c
	}

	if d, ok := raw["details"].(map[string]any); ok {
		for k, v := range d {
			a.Details[k] = v
		}
	}

	reserved := map[string]bool{
		"action_type": true, "type": true, "action": true, "reason": true,
		"summary": true, "confidence": true, "details": true, "task": true,
	}
	for k, v := range raw {
		if !reserved[k] {
			a.Details[k] = v
		}
	}

	// Planners occasionally nest details.details; flatten one level.
	if inner, ok := a.Details["details"].(map[string]any); ok {
		delete(a.Details, "details")
		for k, v := range inner {
			if _, exists := a.Details[k]; !exists {
				a.Details[k] = v
			}
		}
	}

	if t, ok := raw["task"].(string); ok && t != "" {
		a.Task = t
	} else if t := a.DetailString("task"); t != "" {
		a.Task = t
	}
	a.TaskID = a.DetailString("task_id")
	a.Assignee = firstString(a.Details, "assignee", "member_id", "to")

	// Prose-only actions become their own task description.
	if a.Task == "" && a.Details["task"] == nil {
		if prose, ok := raw["action"].(string); ok && !ActionType(prose).Valid() {
			a.Task = prose
			a.Details["task"] = prose
			if a.Reason == "" {
				a.Reason = truncate(prose, 200)
			}
		}
	}

	return a
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		var f float64
		if _, err := fmt.Sscanf(n, "%f", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}
