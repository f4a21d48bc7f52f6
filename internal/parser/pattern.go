package parser

import (
	"regexp"
	"strings"
)

// patternRule maps a compiled expression to an intent. Named capture groups
// become slots. Confidence is per rule: anchored, specific phrasings score
// higher than loose keyword matches.
type patternRule struct {
	re         *regexp.Regexp
	intent     Intent
	confidence float64
}

var patternRules = []patternRule{
	// Email
	{
		re:         regexp.MustCompile(`^archive (?:all |everything )?(?:emails? |messages? |mail )?(?:from |about )?(?P<query>.+)$`),
		intent:     IntentEmailArchive,
		confidence: 0.95,
	},
	{
		re:         regexp.MustCompile(`^(?:search|find|show)(?: me)?(?: my)? (?:emails?|messages?|mail|inbox)(?: (?:from|about|for) (?P<query>.+))?$`),
		intent:     IntentEmailSearch,
		confidence: 0.9,
	},
	{
		re:         regexp.MustCompile(`(?:any|do i have|check)(?: new)? (?:unread )?(?:emails?|messages?|mail)\b`),
		intent:     IntentEmailSearch,
		confidence: 0.85,
	},
	{
		re:         regexp.MustCompile(`^(?:send|write) (?:an? )?(?:email|message|mail) to (?P<to>\S+)(?: (?:about|with subject|subject) (?P<subject>.+))?$`),
		intent:     IntentEmailSend,
		confidence: 0.92,
	},
	{
		re:         regexp.MustCompile(`^reply (?:to (?P<query>.+?) )?(?:saying|with|that) (?P<body>.+)$`),
		intent:     IntentEmailReply,
		confidence: 0.88,
	},
	{
		re:         regexp.MustCompile(`^(?:label|tag|file) (?:all |everything )?(?:emails? |messages? |mail )?(?:from |about )?(?P<query>.+?) (?:as|under|with) (?P<label>.+)$`),
		intent:     IntentEmailLabel,
		confidence: 0.9,
	},
	{
		re:         regexp.MustCompile(`^mark (?:all )?(?:emails? |messages? |mail )?(?:from |about )?(?P<query>.+?) (?:as )?(?P<state>read|unread)$`),
		intent:     IntentEmailMarkRead,
		confidence: 0.9,
	},

	// Calendar
	{
		re:         regexp.MustCompile(`^(?:what(?:'s| is) on my (?:calendar|schedule)|show (?:me )?my (?:calendar|schedule|agenda)|list (?:my )?(?:events|meetings))(?: (?:for|on) (?P<date>.+))?$`),
		intent:     IntentCalendarList,
		confidence: 0.95,
	},
	{
		re:         regexp.MustCompile(`^(?:schedule|create|set up|book) (?:an? )?(?:meeting|event|call|appointment) (?:called |titled |about |with )?(?P<title>.+?) (?:for|on|at) (?P<date>.+)$`),
		intent:     IntentCalendarCreate,
		confidence: 0.9,
	},
	{
		re:         regexp.MustCompile(`^(?:reschedule|move) (?:the |my )?(?P<event>.+?) to (?P<date>.+)$`),
		intent:     IntentCalendarReschedule,
		confidence: 0.9,
	},
	{
		re:         regexp.MustCompile(`^cancel (?:the |my )?(?P<event>.+?)(?: (?:meeting|event|call|appointment))?$`),
		intent:     IntentCalendarCancel,
		confidence: 0.85,
	},
	{
		re:         regexp.MustCompile(`^(?:when am i free|find (?:a )?(?:free|available) (?:slot|time))(?: (?:for|on) (?P<date>.+))?$`),
		intent:     IntentCalendarAvailability,
		confidence: 0.92,
	},
	{
		re:         regexp.MustCompile(`^am i free(?: (?:on|at) (?P<date>.+))?$`),
		intent:     IntentCalendarAvailability,
		confidence: 0.9,
	},

	// Tasks
	{
		re:         regexp.MustCompile(`^(?:remind me to|add (?:a )?task(?: to)?|todo:?) (?P<title>.+?)(?: (?:by|on|due|for) (?P<date>today|tomorrow|yesterday|next week|next month|in \d+ (?:days?|weeks?)|(?:next |on )?(?:sunday|monday|tuesday|wednesday|thursday|friday|saturday)|\d{4}-\d{2}-\d{2}))?$`),
		intent:     IntentTaskCreate,
		confidence: 0.93,
	},
	{
		re:         regexp.MustCompile(`^(?:show|list)(?: me)?(?: my)? (?:tasks|todos|to-?dos|reminders)$`),
		intent:     IntentTaskList,
		confidence: 0.95,
	},
	{
		re:         regexp.MustCompile(`^what(?:'s| is) (?:due|on my (?:task|todo) list)(?: (?P<date>.+))?$`),
		intent:     IntentTaskList,
		confidence: 0.88,
	},
	{
		re:         regexp.MustCompile(`^(?:mark|check off|complete|finish) (?:task )?(?P<task>.+?)(?: (?:as )?(?:done|complete|completed|finished))?$`),
		intent:     IntentTaskComplete,
		confidence: 0.82,
	},
	{
		re:         regexp.MustCompile(`^(?:push|postpone|move) (?:task )?(?P<task>.+?) to (?P<date>.+)$`),
		intent:     IntentTaskDue,
		confidence: 0.87,
	},
}

// PatternClassifier is the first, cheapest stage: anchored regular
// expressions with per-rule confidence.
type PatternClassifier struct {
	rules []patternRule
}

// NewPatternClassifier returns a classifier over the built-in rule set.
func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{rules: patternRules}
}

// Classify runs the query against every rule and returns the best match.
// The second return value is false when nothing matched.
func (p *PatternClassifier) Classify(query string) (Classification, bool) {
	q := normalizeQuery(query)

	best := Classification{Intent: IntentUnknown, Stage: StagePattern}
	matched := false

	for _, rule := range p.rules {
		m := rule.re.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		if rule.confidence <= best.Confidence {
			continue
		}

		slots := make(map[string]string)
		for i, name := range rule.re.SubexpNames() {
			if name == "" || i >= len(m) || m[i] == "" {
				continue
			}
			slots[name] = strings.TrimSpace(m[i])
		}

		best = Classification{
			Intent:     rule.intent,
			Confidence: rule.confidence,
			Slots:      slots,
			Stage:      StagePattern,
		}
		matched = true
	}

	return best, matched
}

// normalizeQuery lowercases and strips surrounding whitespace and trailing
// punctuation so that anchored rules still match conversational input.
func normalizeQuery(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	q = strings.TrimRight(q, ".!?")
	q = strings.Join(strings.Fields(q), " ")
	return q
}
