package store

import "strings"

// SplitTags splits comma-separated tag input and normalizes the result
func SplitTags(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	return NormalizeTags(strings.Split(input, ","))
}

// NormalizeTags trims tags, drops empty ones and removes duplicates,
// keeping the first occurrence of each.
func NormalizeTags(tags []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
