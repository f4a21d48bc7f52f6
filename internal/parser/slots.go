package parser

import (
	"regexp"
	"strings"
)

// datePhraseRe spots the date expressions ResolveDate understands inside
// free-form text.
var datePhraseRe = regexp.MustCompile(`\b(today|tomorrow|yesterday|next week|next month|in \d+ (?:days?|weeks?)|next (?:sunday|monday|tuesday|wednesday|thursday|friday|saturday)|(?:sunday|monday|tuesday|wednesday|thursday|friday|saturday)|\d{4}-\d{2}-\d{2})\b(\s+at\s+\d{1,2}(?::\d{2})?\s?(?:am|pm)?)?`)

// emailAddrRe matches a bare email address.
var emailAddrRe = regexp.MustCompile(`\b[\w.+-]+@[\w-]+\.[\w.-]+\b`)

// extractSlots pulls slot values out of a query for an intent decided by a
// stage that does not produce slots itself (semantic similarity, or an LLM
// answer with missing fields). Pattern rules for the intent are tried first;
// generic extractors fill the gaps.
func extractSlots(intent Intent, query string) map[string]string {
	q := normalizeQuery(query)
	slots := make(map[string]string)

	for _, rule := range patternRules {
		if rule.intent != intent {
			continue
		}
		m := rule.re.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		for i, name := range rule.re.SubexpNames() {
			if name == "" || i >= len(m) || m[i] == "" {
				continue
			}
			slots[name] = strings.TrimSpace(m[i])
		}
		break
	}

	// A date phrase dangling at the end of a captured title belongs to the
	// date slot ("water the plants tomorrow" → title "water the plants",
	// date "tomorrow").
	if title, ok := slots[SlotTitle]; ok {
		if rest, phrase := splitTrailingDate(title); phrase != "" && rest != "" {
			slots[SlotTitle] = rest
			if slots[SlotDate] == "" {
				slots[SlotDate] = phrase
			}
		}
	}

	if _, ok := slots[SlotDate]; !ok {
		if m := datePhraseRe.FindStringSubmatch(q); m != nil {
			slots[SlotDate] = strings.TrimSpace(m[0])
		}
	}

	if _, ok := slots[SlotTo]; !ok {
		if addr := emailAddrRe.FindString(query); addr != "" &&
			(intent == IntentEmailSend || intent == IntentEmailReply) {
			slots[SlotTo] = addr
		}
	}

	// Drop slot keys that carry nothing after trimming.
	for k, v := range slots {
		if v == "" {
			delete(slots, k)
		}
	}

	return slots
}

// splitTrailingDate splits a date phrase off the end of text, along with any
// connective ("by", "until", "on", "for") left hanging before it. Returns
// ("", "") when the text does not end in a date phrase.
func splitTrailingDate(text string) (rest, phrase string) {
	matches := datePhraseRe.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return "", ""
	}
	last := matches[len(matches)-1]
	if last[1] != len(text) {
		return "", ""
	}

	phrase = strings.TrimSpace(text[last[0]:])
	rest = strings.TrimSpace(text[:last[0]])
	for _, conn := range []string{" by", " until", " on", " for"} {
		rest = strings.TrimSuffix(rest, conn)
	}
	return strings.TrimSpace(rest), phrase
}

// mergeSlots overlays extracted slots onto the ones a classifier returned,
// never overwriting values the classifier produced.
func mergeSlots(primary, fallback map[string]string) map[string]string {
	if primary == nil {
		primary = make(map[string]string)
	}
	for k, v := range fallback {
		if primary[k] == "" && v != "" {
			primary[k] = v
		}
	}
	return primary
}
