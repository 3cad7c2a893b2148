package typescript

import "strings"

// parseDocTags returns the block tag names of a /** */ comment in order,
// without the leading '@'. Inline tags such as {@link X} are ignored.
func parseDocTags(comment string) []string {
	body := strings.TrimSuffix(strings.TrimPrefix(comment, "/**"), "*/")

	var tags []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimLeft(line, "*"))
		if !strings.HasPrefix(line, "@") {
			continue
		}
		name := line[1:]
		if end := strings.IndexFunc(name, func(r rune) bool {
			return r == ' ' || r == '\t' || r == '{' || r == '}' || r == '*'
		}); end >= 0 {
			name = name[:end]
		}
		if name != "" {
			tags = append(tags, name)
		}
	}
	return tags
}
