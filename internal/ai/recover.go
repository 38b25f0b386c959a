package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Recovered is the best JSON object salvaged from a raw model response.
type Recovered struct {
	JSON  []byte
	Stage Stage
}

var (
	fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

	partialType     = regexp.MustCompile(`"type"\s*:\s*"([^"]*)"`)
	partialSummary  = regexp.MustCompile(`"summary"\s*:\s*"([^"]*)"`)
	partialContent  = regexp.MustCompile(`"content"\s*:\s*"([^"]*)"`)
	partialCategory = regexp.MustCompile(`"category"\s*:\s*"([^"]*)"`)

	danglingKeyColon = regexp.MustCompile(`,?\s*"(?:[^"\\]|\\.)*"\s*:\s*$`)
	danglingKey      = regexp.MustCompile(`[{,]\s*"(?:[^"\\]|\\.)*"\s*$`)
)

// Recover turns a raw model response into the best available JSON object.
// Strategies run cheapest first: extract and parse strictly, repair
// truncation artifacts, then scrape individual fields. Each stage trades
// precision for recall; a later stage never runs when an earlier one
// succeeds. Failure returns a *RecoveryError with the truncated raw text.
func Recover(raw string) (Recovered, error) {
	extracted, ok := extractJSON(raw)
	if !ok {
		return Recovered{}, &RecoveryError{Reason: ReasonNoJSON, Raw: truncateRaw(raw)}
	}

	if json.Valid([]byte(extracted)) {
		return Recovered{JSON: []byte(extracted), Stage: StageParsed}, nil
	}

	if repaired, ok := repairJSON(extracted); ok {
		return Recovered{JSON: []byte(repaired), Stage: StageRepaired}, nil
	}

	if partial, ok := extractPartial(extracted); ok {
		return Recovered{JSON: partial, Stage: StagePartial}, nil
	}

	return Recovered{}, &RecoveryError{Reason: ReasonUnparseable, Raw: truncateRaw(raw)}
}

// extractJSON pulls the JSON payload out of a model response: the content of
// a fenced code block when present, otherwise everything from the first '{'.
func extractJSON(raw string) (string, bool) {
	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	if i := strings.Index(raw, "{"); i >= 0 {
		return raw[i:], true
	}
	return "", false
}

// repairJSON fixes the common truncation artifacts: literal newlines inside
// strings, an unterminated final string, a dangling trailing key or comma,
// and unclosed containers. Reports ok only when the repaired text parses.
func repairJSON(s string) (string, bool) {
	var b strings.Builder
	b.Grow(len(s) + 8)

	inString := false
	escapeNext := false
	openBraces := 0
	openBrackets := 0

	for _, ch := range s {
		if escapeNext {
			b.WriteRune(ch)
			escapeNext = false
			continue
		}
		switch {
		case ch == '\\':
			b.WriteRune(ch)
			escapeNext = true
		case ch == '"':
			inString = !inString
			b.WriteRune(ch)
		case inString && ch == '\n':
			b.WriteString(`\n`)
		case inString && ch == '\r':
			b.WriteString(`\r`)
		default:
			if !inString {
				switch ch {
				case '{':
					openBraces++
				case '}':
					openBraces--
				case '[':
					openBrackets++
				case ']':
					openBrackets--
				}
			}
			b.WriteRune(ch)
		}
	}

	out := b.String()
	if inString {
		out += `"`
	}
	out = stripDanglingTail(out)
	// Brackets close before braces: arrays nest inside the outer object.
	out += strings.Repeat("]", max(openBrackets, 0))
	out += strings.Repeat("}", max(openBraces, 0))

	if !json.Valid([]byte(out)) {
		return "", false
	}
	return out, true
}

// stripDanglingTail removes the fragment truncation leaves behind mid-key:
// a trailing comma, a trailing quoted key with or without its colon.
func stripDanglingTail(s string) string {
	s = strings.TrimRight(s, " \t\n\r")
	if loc := danglingKeyColon.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	} else if loc := danglingKey.FindStringIndex(s); loc != nil {
		// A quoted string preceded by '{' or ',' is a key; one preceded by
		// ':' or '[' is a value and stays.
		if s[loc[0]] == '{' {
			s = s[:loc[0]+1]
		} else {
			s = s[:loc[0]]
		}
	}
	s = strings.TrimRight(s, " \t\n\r")
	return strings.TrimSuffix(s, ",")
}

// extractPartial scrapes the known top-level fields individually. A result
// is accepted only when both type and summary are present; content falls
// back to summary and category to the kind's default label.
func extractPartial(s string) ([]byte, bool) {
	tm := partialType.FindStringSubmatch(s)
	sm := partialSummary.FindStringSubmatch(s)
	if tm == nil || sm == nil {
		return nil, false
	}

	kind := Kind(strings.ToUpper(tm[1]))
	if kind != KindCalendar && kind != KindMemo {
		return nil, false
	}

	out := Result{Kind: kind, Summary: sm[1]}
	if cm := partialContent.FindStringSubmatch(s); cm != nil {
		out.Content = cm[1]
	} else {
		out.Content = out.Summary
	}
	if cm := partialCategory.FindStringSubmatch(s); cm != nil {
		out.Category = cm[1]
	} else if kind == KindCalendar {
		out.Category = DefaultCalendarCategory
	} else {
		out.Category = DefaultMemoCategory
	}

	buf, err := json.Marshal(out)
	if err != nil {
		return nil, false
	}
	return buf, true
}
