package dictionary

import (
	"regexp"
	"strings"
)

// Fallback is the soft-failure definition value. Callers must treat it as a
// valid (if uninformative) result, never as an error to propagate.
const Fallback = "No definition available."

var (
	markupRe   = regexp.MustCompile(`\{[^}]+\}`)
	sentenceRe = regexp.MustCompile(`\.\s*`)
)

// Extract traverses the "def" field of a collegiate-dictionary API entry and
// produces one human-readable definition string.
//
// The entry shape is def → sense groups → "sseq" → sense pairs, where each
// usable pair's second element carries a "dt" list of typed [type, content]
// items. Content is either a plain string or a list of tagged fragments whose
// "t" texts are concatenated in order.
//
// When a sense yields at least two sentences, the second one is returned: the
// first is usually a terse cross-reference and the second the fuller wording.
// Senses are scanned in document order and the first non-empty result wins.
// Returns Fallback when no sense yields any content.
func Extract(entry map[string]any) string {
	defs, _ := entry["def"].([]any)

	for _, d := range defs {
		sense, ok := d.(map[string]any)
		if !ok {
			continue
		}
		sseq, _ := sense["sseq"].([]any)

		for _, g := range sseq {
			group, ok := g.([]any)
			if !ok {
				continue
			}
			for _, se := range group {
				if text := senseText(se); text != "" {
					return text
				}
			}
		}
	}

	return Fallback
}

// senseText extracts the chosen sentence from one sense pair, or "" when the
// sense carries no usable content.
func senseText(se any) string {
	pair, ok := se.([]any)
	if !ok || len(pair) < 2 {
		return ""
	}
	body, ok := pair[1].(map[string]any)
	if !ok {
		return ""
	}

	dt, _ := body["dt"].([]any)
	var parts []string
	for _, it := range dt {
		item, ok := it.([]any)
		if !ok || len(item) < 2 {
			continue
		}
		switch content := item[1].(type) {
		case string:
			parts = append(parts, content)
		case []any:
			for _, sub := range content {
				if frag, ok := sub.(map[string]any); ok {
					if t, ok := frag["t"].(string); ok {
						parts = append(parts, t)
					}
				}
			}
		}
	}
	if len(parts) == 0 {
		return ""
	}

	text := strings.TrimSpace(markupRe.ReplaceAllString(strings.Join(parts, " "), ""))

	var sentences []string
	for _, s := range sentenceRe.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, s)
		}
	}

	// Prefer the second sentence over the terse first clause.
	if len(sentences) >= 2 {
		return strings.TrimSpace(sentences[1]) + "."
	}
	if len(sentences) == 1 {
		return strings.TrimSpace(sentences[0]) + "."
	}
	return ""
}
