package flow

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
)

// fuzzyCutoff is the minimum similarity ratio for a fuzzy option match.
const fuzzyCutoff = 0.6

// ParseAnswer normalises a raw answer for the given step. It never rejects:
// text answers and input that matches no rule are stored verbatim.
func ParseAnswer(step model.FlowStep, raw string) string {
	in := strings.TrimSpace(raw)
	if in == "" {
		return raw
	}
	switch step.Type {
	case model.AnswerTime:
		if v, ok := ParseTime(in); ok {
			return v
		}
	case model.AnswerChoice:
		if v, ok := ParseChoice(in, step.Options); ok {
			return v
		}
	case model.AnswerDate:
		if v, ok := ParseDate(in); ok {
			return v
		}
	}
	return raw
}

// ===================== time =====================

var (
	reClock12   = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(AM|PM)\b`)
	reHour12    = regexp.MustCompile(`\b(\d{1,2})\s*(AM|PM)\b`)
	reClock24   = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	rePrefixed  = regexp.MustCompile(`\b(?:REMIND ME AT|REMINDER AT|SCHEDULED FOR|SET FOR|AT)\s+(\d{1,2})\b`)
	reBareHour  = regexp.MustCompile(`^(\d{1,2})$`)
	timeDisplay = "03:04 PM"
)

// ParseTime extracts a clock time and renders it as "hh:mm AM/PM". Patterns
// are tried from most to least specific.
func ParseTime(raw string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer("A.M.", "AM", "P.M.", "PM").Replace(s)

	if m := reClock12.FindStringSubmatch(s); m != nil {
		if v, ok := clock12(m[1], m[2], m[3]); ok {
			return v, true
		}
	}
	if m := reHour12.FindStringSubmatch(s); m != nil {
		if v, ok := clock12(m[1], "00", m[2]); ok {
			return v, true
		}
	}
	if m := reClock24.FindStringSubmatch(s); m != nil {
		if v, ok := clock24(m[1], m[2]); ok {
			return v, true
		}
	}
	if m := rePrefixed.FindStringSubmatch(s); m != nil {
		if v, ok := clock24(m[1], "00"); ok {
			return v, true
		}
	}
	if m := reBareHour.FindStringSubmatch(s); m != nil {
		if v, ok := clock24(m[1], "00"); ok {
			return v, true
		}
	}
	return "", false
}

func clock12(hh, mm, meridiem string) (string, bool) {
	h, err1 := strconv.Atoi(hh)
	m, err2 := strconv.Atoi(mm)
	if err1 != nil || err2 != nil || h < 1 || h > 12 || m > 59 {
		return "", false
	}
	if meridiem == "PM" && h != 12 {
		h += 12
	}
	if meridiem == "AM" && h == 12 {
		h = 0
	}
	return renderClock(h, m), true
}

func clock24(hh, mm string) (string, bool) {
	h, err1 := strconv.Atoi(hh)
	m, err2 := strconv.Atoi(mm)
	if err1 != nil || err2 != nil || h > 23 || m > 59 {
		return "", false
	}
	return renderClock(h, m), true
}

func renderClock(h, m int) string {
	return time.Date(2000, 1, 1, h, m, 0, 0, time.UTC).Format(timeDisplay)
}

// ===================== choice =====================

type ordinal struct {
	word  string
	index int
}

// ordinals are matched as substrings in this order.
var ordinals = []ordinal{
	{"first", 1}, {"second", 2}, {"third", 3}, {"fourth", 4}, {"fifth", 5},
	{"1st", 1}, {"2nd", 2}, {"3rd", 3}, {"4th", 4}, {"5th", 5},
}

// ParseChoice maps free text onto one of options. Rules in precedence order:
// exact, ordinal word anywhere in the input, 1-based index, substring either
// way, shared whitespace-separated word, fuzzy ratio >= 0.6.
func ParseChoice(raw string, options []string) (string, bool) {
	in := strings.TrimSpace(raw)
	low := strings.ToLower(in)
	if low == "" || len(options) == 0 {
		return "", false
	}

	for _, o := range options {
		if strings.EqualFold(o, in) {
			return o, true
		}
	}

	for _, o := range ordinals {
		if o.index <= len(options) && strings.Contains(low, o.word) {
			return options[o.index-1], true
		}
	}

	if n, err := strconv.Atoi(low); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1], true
		}
	}

	for _, o := range options {
		ol := strings.ToLower(o)
		if strings.Contains(ol, low) || strings.Contains(low, ol) {
			return o, true
		}
	}

	words := map[string]struct{}{}
	for _, w := range strings.Fields(low) {
		words[w] = struct{}{}
	}
	for _, o := range options {
		for _, w := range strings.Fields(strings.ToLower(o)) {
			if _, ok := words[w]; ok {
				return o, true
			}
		}
	}

	best, bestRatio := "", 0.0
	for _, o := range options {
		r := similarity(low, strings.ToLower(o))
		if r > bestRatio {
			best, bestRatio = o, r
		}
	}
	if bestRatio >= fuzzyCutoff {
		return best, true
	}
	return "", false
}

// similarity is difflib's SequenceMatcher ratio over characters.
func similarity(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}

// ===================== date =====================

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(in \d+\s*(?:days?|hours?|weeks?|months?))`),
	regexp.MustCompile(`(?i)(by\s(?:next\s)?(?:week|month|semester|year|\w+))`),
	regexp.MustCompile(`(?i)([A-Z][a-z]+\s\d{1,2}(?:st|nd|rd|th)?,\s?\d{4})`),
	regexp.MustCompile(`(?i)([A-Z][a-z]+\s\d{1,2}(?:st|nd|rd|th)?)`),
	regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{2,4})`),
	regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`),
}

// ParseDate returns the first date-like phrase found in raw, verbatim.
func ParseDate(raw string) (string, bool) {
	for _, re := range datePatterns {
		if m := re.FindStringSubmatch(raw); m != nil {
			return m[1], true
		}
	}
	return "", false
}
