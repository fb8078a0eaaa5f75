package signals

import "strings"

var escalationKeywords = []string{
	"representative",
	"human",
	"manager",
	"supervisor",
	"angry",
	"refund",
	"lawsuit",
	"cancel",
	"urgent",
	"complaint",
	"frustrated",
	"disappointed",
	"terrible",
	"awful",
	"horrible",
	"unacceptable",
}

var schedulingKeywords = []string{
	"schedule",
	"book",
	"appointment",
	"meeting",
	"call",
	"demo",
	"consultation",
	"talk",
	"speak",
	"meet",
	"set up",
	"arrange",
	"when can",
	"available",
	"calendar",
	"time slot",
	"pick a time",
	"choose a time",
	"reserve",
}

var objectionKeywords = []string{
	"too expensive",
	"cost",
	"price",
	"can't afford",
	"budget",
	"cheaper",
	"not interested",
	"don't need",
	"maybe later",
	"think about it",
	"not sure",
	"concerned",
	"worried",
}

// ShouldEscalate reports whether text asks for, or warrants, a human.
// Matching is a case-insensitive substring search.
func ShouldEscalate(text string) bool {
	return containsAny(text, escalationKeywords)
}

func HasSchedulingIntent(text string) bool {
	return containsAny(text, schedulingKeywords)
}

// HasObjection detects price or hesitation objections.
func HasObjection(text string) bool {
	return containsAny(text, objectionKeywords)
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

var timezoneAbbreviations = []struct {
	abbr string
	zone string
}{
	{"est", "America/New_York"},
	{"edt", "America/New_York"},
	{"pst", "America/Los_Angeles"},
	{"pdt", "America/Los_Angeles"},
	{"cst", "America/Chicago"},
	{"cdt", "America/Chicago"},
	{"mst", "America/Denver"},
	{"mdt", "America/Denver"},
	{"gmt", "Europe/London"},
	{"utc", "UTC"},
}

// DetectTimezone maps a timezone abbreviation mentioned in text to an IANA
// zone name. It returns "" when none is mentioned.
func DetectTimezone(text string) string {
	for _, f := range strings.FieldsFunc(strings.ToLower(text), isWordSeparator) {
		for _, tz := range timezoneAbbreviations {
			if f == tz.abbr {
				return tz.zone
			}
		}
	}
	return ""
}

func isWordSeparator(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
}
