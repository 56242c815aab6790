package workflow

import (
	"regexp"
	"strings"
)

// Input is a named value fetched for a prompt. Order is preserved.
type Input struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

var dataMarker = regexp.MustCompile(`\[data:([^\]]+)\]`)

// BuildPrompt assembles the text sent to the model: the system prompt, the
// substituted task prompt and a "name: value" listing of the inputs, joined
// by blank lines. Empty parts are skipped.
func BuildPrompt(systemPrompt, taskPrompt string, inputs []Input) string {
	parts := make([]string, 0, 3)
	if s := strings.TrimSpace(systemPrompt); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(Substitute(taskPrompt, inputs)); s != "" {
		parts = append(parts, s)
	}
	if len(inputs) > 0 {
		lines := make([]string, len(inputs))
		for i, in := range inputs {
			lines[i] = in.Name + ": " + in.Value
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n\n")
}

// Substitute fills a task template. Templates containing [data:name] markers
// have only those markers replaced; otherwise {name} placeholders are
// substituted, with {{ and }} producing literal braces. Unknown names become
// the empty string.
func Substitute(template string, inputs []Input) string {
	values := make(map[string]string, len(inputs))
	for _, in := range inputs {
		values[in.Name] = in.Value
	}
	if dataMarker.MatchString(template) {
		return dataMarker.ReplaceAllStringFunc(template, func(marker string) string {
			name := strings.TrimSpace(dataMarker.FindStringSubmatch(marker)[1])
			return values[name]
		})
	}
	return substituteKeyed(template, values)
}

func substituteKeyed(template string, values map[string]string) string {
	var b strings.Builder
	b.Grow(len(template))
	for i := 0; i < len(template); i++ {
		c := template[i]
		switch {
		case c == '{' && i+1 < len(template) && template[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(template) && template[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 || !isPlaceholderName(template[i+1:i+1+end]) {
				b.WriteByte(c)
				continue
			}
			b.WriteString(values[template[i+1:i+1+end]])
			i += end + 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isPlaceholderName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
