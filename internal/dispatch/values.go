package dispatch

import "fmt"

// stringField reads a string field from a document, treating missing or
// non-string values as empty.
func stringField(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	s, _ := data[key].(string)
	return s
}

// stringList reads an array of ids. Documents decoded from JSON or Firestore
// carry []any, callers in Go may pass []string. Non-string entries are skipped.
func stringList(data map[string]any, key string) []string {
	if data == nil {
		return nil
	}
	switch v := data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// addedIDs returns the ids present in after but not in before, in the order
// they appear in after, plus whether the after set is strictly larger.
func addedIDs(before, after []string) ([]string, bool) {
	prev := make(map[string]struct{}, len(before))
	for _, id := range before {
		prev[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(after))
	var added []string
	for _, id := range after {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := prev[id]; !ok {
			added = append(added, id)
		}
	}

	return added, len(seen) > len(prev)
}

func malformed(format string, args ...any) Outcome {
	return skip(OutcomeSkippedMalformed, fmt.Sprintf(format, args...))
}
