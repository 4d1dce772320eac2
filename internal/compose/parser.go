package compose

import (
	"encoding/json"
	"strings"

	"newsdesk/internal/core"
)

// parserStrategy attempts to interpret raw backend text as the four
// article fields. It reports false when the text does not match its
// shape; the composer tries each strategy in order and fails only when
// all of them decline.
type parserStrategy func(raw string) (core.ArticleRecord, bool)

// parserChain is the ordered list of strategies: strict JSON first, then
// fenced code block extraction, then brace extraction, then a tolerant
// rewrite of single-quoted pseudo-JSON.
var parserChain = []parserStrategy{
	parseStrict,
	parseFenced,
	parseBraced,
	parseSingleQuoted,
}

// ParseArticle runs the parser chain over raw backend text.
func ParseArticle(raw string) (core.ArticleRecord, bool) {
	for _, strategy := range parserChain {
		if record, ok := strategy(raw); ok {
			return record, true
		}
	}
	return core.ArticleRecord{}, false
}

// parseStrict requires the whole response to be a valid JSON object.
func parseStrict(raw string) (core.ArticleRecord, bool) {
	return unmarshalFields(strings.TrimSpace(raw))
}

// parseFenced extracts a ```json fenced block and parses its contents.
func parseFenced(raw string) (core.ArticleRecord, bool) {
	trimmed := strings.TrimSpace(raw)
	start := strings.Index(trimmed, "```")
	if start < 0 {
		return core.ArticleRecord{}, false
	}
	rest := trimmed[start+3:]
	// Skip the language tag on the opening fence, if any.
	if newline := strings.Index(rest, "\n"); newline >= 0 {
		firstLine := strings.TrimSpace(rest[:newline])
		if firstLine == "json" || firstLine == "JSON" || firstLine == "" {
			rest = rest[newline+1:]
		}
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return core.ArticleRecord{}, false
	}
	return unmarshalFields(strings.TrimSpace(rest[:end]))
}

// parseBraced extracts the outermost {...} span and parses it. Handles
// responses that wrap the object in prose.
func parseBraced(raw string) (core.ArticleRecord, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return core.ArticleRecord{}, false
	}
	return unmarshalFields(raw[start : end+1])
}

// parseSingleQuoted tolerates Python-style dict output: single-quoted
// keys and values. Quotes inside values are preserved by only rewriting
// quotes adjacent to structural characters.
func parseSingleQuoted(raw string) (core.ArticleRecord, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return core.ArticleRecord{}, false
	}
	candidate := raw[start : end+1]

	replacer := strings.NewReplacer(
		"{'", `{"`,
		"'}", `"}`,
		"':", `":`,
		": '", `: "`,
		":'", `:"`,
		"',", `",`,
		", '", `, "`,
	)
	return unmarshalFields(replacer.Replace(candidate))
}

// unmarshalFields decodes a JSON object and maps its keys onto an
// ArticleRecord, accepting the aliases the backend has been seen to use.
// All four fields must be present and non-empty.
func unmarshalFields(text string) (core.ArticleRecord, bool) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return core.ArticleRecord{}, false
	}

	record := core.ArticleRecord{
		Headline: pickString(fields, "headline", "AIHeadline", "title"),
		Haiku:    pickString(fields, "haiku", "AIHaiku"),
		Story:    pickString(fields, "story", "AIStory", "article", "body"),
		Summary:  pickString(fields, "summary", "AISummary"),
	}

	if record.Headline == "" || record.Haiku == "" || record.Story == "" || record.Summary == "" {
		return core.ArticleRecord{}, false
	}
	return record, true
}

// pickString returns the first non-empty string value among the aliases.
// Key matching is case-insensitive.
func pickString(fields map[string]any, aliases ...string) string {
	lowered := make(map[string]any, len(fields))
	for k, v := range fields {
		lowered[strings.ToLower(k)] = v
	}
	for _, alias := range aliases {
		if value, ok := lowered[strings.ToLower(alias)]; ok {
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}
