package event

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// ErrNoRecognizedPattern is wrapped by DateParseError when no date shape matches.
var ErrNoRecognizedPattern = errors.New("no recognized date/time pattern")

// DateParseError reports date text the interpreter could not understand.
type DateParseError struct {
	Text string
}

func (e *DateParseError) Error() string {
	if e.Text == "" {
		return "parsing event date: no date text found"
	}
	return fmt.Sprintf("parsing event date %q: %v", e.Text, ErrNoRecognizedPattern)
}

func (e *DateParseError) Unwrap() error {
	return ErrNoRecognizedPattern
}

// Span is a start/end pair of absolute instants.
type Span struct {
	Start time.Time
	End   time.Time
}

// NoMatchPolicy decides what Resolve does when no shape matches.
type NoMatchPolicy int

const (
	// NoMatchError makes Resolve return a *DateParseError.
	NoMatchError NoMatchPolicy = iota
	// NoMatchDefaultWindow makes Resolve return now+1h to now+3h.
	NoMatchDefaultWindow
)

// ParseNoMatchPolicy maps a configuration value to a NoMatchPolicy.
func ParseNoMatchPolicy(s string) (NoMatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "error":
		return NoMatchError, nil
	case "default", "default-window":
		return NoMatchDefaultWindow, nil
	default:
		return NoMatchError, fmt.Errorf("unknown date policy %q (must be 'error' or 'default')", s)
	}
}

func (p NoMatchPolicy) String() string {
	if p == NoMatchDefaultWindow {
		return "default"
	}
	return "error"
}

// Interpreter turns free-text date strings into spans. It holds no mutable
// state and is safe for concurrent use.
type Interpreter struct {
	loc       *time.Location
	now       func() time.Time
	onNoMatch NoMatchPolicy
}

// InterpreterOption configures an Interpreter.
type InterpreterOption func(*Interpreter)

// WithClock sets the clock used for the current year and the default window.
func WithClock(now func() time.Time) InterpreterOption {
	return func(in *Interpreter) {
		in.now = now
	}
}

// WithNoMatchPolicy sets the behaviour of Resolve when no shape matches.
func WithNoMatchPolicy(p NoMatchPolicy) InterpreterOption {
	return func(in *Interpreter) {
		in.onNoMatch = p
	}
}

// NewInterpreter creates an Interpreter producing instants in loc.
// A nil loc means the event zone.
func NewInterpreter(loc *time.Location, opts ...InterpreterOption) *Interpreter {
	if loc == nil {
		loc = Location()
	}
	in := &Interpreter{
		loc:       loc,
		now:       time.Now,
		onNoMatch: NoMatchError,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Policy returns the configured no-match policy.
func (in *Interpreter) Policy() NoMatchPolicy {
	return in.onNoMatch
}

// Resolve parses text and applies the no-match policy when nothing matches.
func (in *Interpreter) Resolve(text string) (Span, error) {
	span, _, err := in.Interpret(text)
	return span, err
}

// Interpret is Resolve that also reports whether text matched a shape.
// matched is false when the span comes from the default window.
func (in *Interpreter) Interpret(text string) (span Span, matched bool, err error) {
	if parsed, ok := in.Parse(text); ok {
		return parsed, true, nil
	}
	if in.onNoMatch == NoMatchDefaultWindow {
		now := in.now().In(in.loc).Truncate(time.Minute)
		return Span{Start: now.Add(time.Hour), End: now.Add(3 * time.Hour)}, false, nil
	}
	return Span{}, false, &DateParseError{Text: strings.TrimSpace(text)}
}

// Parse tries every known shape in priority order and returns the span of the
// first one that matches with valid values.
func (in *Interpreter) Parse(text string) (Span, bool) {
	text = normalizeDateText(text)
	if text == "" {
		return Span{}, false
	}
	for _, sh := range shapes {
		for _, m := range sh.re.FindAllStringSubmatch(text, -1) {
			if span, ok := in.build(sh, m); ok {
				return span, true
			}
		}
	}
	return Span{}, false
}

var dashReplacer = strings.NewReplacer(
	"〜", "~", // wave dash
	"～", "~",
	"–", "-",
	"—", "-",
	"−", "-",
	"‐", "-",
)

// normalizeDateText folds full-width characters, unifies range separators
// and collapses whitespace.
func normalizeDateText(s string) string {
	s = width.Fold.String(s)
	s = dashReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Regular expression building blocks. Group names are prefixed with "s" for
// the start and "e" for the end of a range.
const (
	rangeSep  = `\s*(?:-|~|to)\s*`
	jaWeekday = `(?:\s*\([^)]{1,4}\))?`
)

func clockRE(p string) string {
	return `(?P<` + p + `h>\d{1,2}):(?P<` + p + `min>\d{2})`
}

func clock12RE(p string) string {
	return clockRE(p) + `\s*(?P<` + p + `ap>[AaPp]\.?[Mm]\.?)`
}

func enDateRE(p string) string {
	return `(?P<` + p + `mon>[A-Za-z]+)\.?\s+(?P<` + p + `d>\d{1,2})(?:st|nd|rd|th)?,?\s+(?P<` + p + `y>\d{4})`
}

func enDateTimeRE(p string) string {
	return enDateRE(p) + `,?(?:\s+at)?\s+` + clock12RE(p)
}

func jaDateRE(p string) string {
	return `(?P<` + p + `y>\d{4})年\s*(?P<` + p + `mo>\d{1,2})月\s*(?P<` + p + `d>\d{1,2})日` + jaWeekday
}

func jaOptYearDateRE(p string) string {
	return `(?:(?P<` + p + `y>\d{4})年\s*)?(?P<` + p + `mo>\d{1,2})月\s*(?P<` + p + `d>\d{1,2})日` + jaWeekday
}

func jaMonthDayRE(p string) string {
	return `(?P<` + p + `mo>\d{1,2})月\s*(?P<` + p + `d>\d{1,2})日` + jaWeekday
}

func numericDateRE(p string) string {
	return `(?P<` + p + `y>\d{4})[-/.](?P<` + p + `mo>\d{1,2})[-/.](?P<` + p + `d>\d{1,2})` + jaWeekday
}

func slashMonthDayRE(p string) string {
	return `(?:^|[^\d/])(?P<` + p + `mo>\d{1,2})/(?P<` + p + `d>\d{1,2})` + jaWeekday
}

type shape struct {
	name string
	re   *regexp.Regexp
	// crossDay shapes carry their own end date; a reversed range is invalid.
	crossDay bool
	// dateOnly shapes cover the whole start day.
	dateOnly bool
}

func newShape(name, expr string, crossDay bool) shape {
	return shape{name: name, re: regexp.MustCompile(expr), crossDay: crossDay}
}

// newDateOnlyShape matches a date with an optional trailing clock. A clock
// that reaches this shape was rejected by every timed shape, so build refuses
// the match instead of widening it to a whole day.
func newDateOnlyShape(name, expr string) shape {
	trailingClock := `(?:,?(?:\s+at)?\s*` + clockRE("s") + `)?`
	return shape{name: name, re: regexp.MustCompile(expr + trailingClock), dateOnly: true}
}

// shapes is ordered by priority: English before Japanese, ranges before
// single timestamps, full dates before partial ones, and dates without a
// time last.
var shapes = []shape{
	newShape("en-cross-day", enDateTimeRE("s")+rangeSep+enDateTimeRE("e"), true),
	newShape("en-same-day", enDateTimeRE("s")+rangeSep+clock12RE("e"), false),
	newShape("en-single", enDateTimeRE("s"), false),
	newShape("ja-cross-day", jaOptYearDateRE("s")+`\s*`+clockRE("s")+rangeSep+jaOptYearDateRE("e")+`\s*`+clockRE("e"), true),
	newShape("numeric-cross-day", numericDateRE("s")+`\s*`+clockRE("s")+rangeSep+numericDateRE("e")+`\s*`+clockRE("e"), true),
	newShape("ja-full-range", jaDateRE("s")+`\s*`+clockRE("s")+rangeSep+clockRE("e"), false),
	newShape("ja-month-day-range", jaMonthDayRE("s")+`\s*`+clockRE("s")+rangeSep+clockRE("e"), false),
	newShape("numeric-range", numericDateRE("s")+`\s*`+clockRE("s")+rangeSep+clockRE("e"), false),
	newShape("slash-month-day-range", slashMonthDayRE("s")+`\s*`+clockRE("s")+rangeSep+clockRE("e"), false),
	newShape("ja-full-single", jaDateRE("s")+`\s*`+clockRE("s"), false),
	newShape("numeric-single", numericDateRE("s")+`\s*`+clockRE("s"), false),
	newShape("ja-month-day-single", jaMonthDayRE("s")+`\s*`+clockRE("s"), false),
	newShape("slash-month-day-single", slashMonthDayRE("s")+`\s*`+clockRE("s"), false),
	newDateOnlyShape("en-date", enDateRE("s")),
	newDateOnlyShape("ja-date", jaOptYearDateRE("s")),
	newDateOnlyShape("numeric-date", numericDateRE("s")),
}

type calendarDate struct {
	year  int
	month time.Month
	day   int
}

// build validates one regexp match and converts it into a span.
func (in *Interpreter) build(sh shape, m []string) (Span, bool) {
	group := func(name string) string {
		i := sh.re.SubexpIndex(name)
		if i < 0 || i >= len(m) {
			return ""
		}
		return m[i]
	}

	currentYear := in.now().In(in.loc).Year()

	startDate, ok := matchDate(group, "s", currentYear)
	if !ok {
		return Span{}, false
	}
	if sh.dateOnly {
		if group("sh") != "" {
			return Span{}, false
		}
		start := time.Date(startDate.year, startDate.month, startDate.day, 0, 0, 0, 0, in.loc)
		end := time.Date(startDate.year, startDate.month, startDate.day, 23, 59, 0, 0, in.loc)
		return Span{Start: start, End: end}, true
	}
	startHour, startMinute, present, ok := matchClock(group, "s", false)
	if !ok || !present {
		return Span{}, false
	}
	start := time.Date(startDate.year, startDate.month, startDate.day, startHour, startMinute, 0, 0, in.loc)

	endHour, endMinute, hasEnd, ok := matchClock(group, "e", true)
	if !ok {
		return Span{}, false
	}
	if !hasEnd {
		return Span{Start: start, End: defaultEnd(start)}, true
	}

	endDate := startDate
	if sh.crossDay {
		endDate, ok = matchDate(group, "e", startDate.year)
		if !ok {
			return Span{}, false
		}
	}
	end := time.Date(endDate.year, endDate.month, endDate.day, endHour, endMinute, 0, 0, in.loc)

	if end.Before(start) {
		switch {
		case sh.crossDay && group("ey") == "":
			// "12月31日 20:00 - 1月1日 2:00" ends in the following year
			end = end.AddDate(1, 0, 0)
		case sh.crossDay:
			return Span{}, false
		default:
			// "22:00 - 01:00" ends on the following day
			end = end.AddDate(0, 0, 1)
		}
		if end.Before(start) {
			return Span{}, false
		}
	}

	return Span{Start: start, End: end}, true
}

// defaultEnd is one hour after start, kept on the start's calendar day.
func defaultEnd(start time.Time) time.Time {
	end := start.Add(time.Hour)
	if end.YearDay() != start.YearDay() || end.Year() != start.Year() {
		end = time.Date(start.Year(), start.Month(), start.Day(), 23, 59, 0, 0, start.Location())
	}
	return end
}

func matchDate(group func(string) string, prefix string, defaultYear int) (calendarDate, bool) {
	d := calendarDate{year: defaultYear}

	if y := group(prefix + "y"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			return d, false
		}
		d.year = year
	}

	if name := group(prefix + "mon"); name != "" {
		month, ok := MonthFromName(name)
		if !ok {
			return d, false
		}
		d.month = month
	} else {
		month, err := strconv.Atoi(group(prefix + "mo"))
		if err != nil || month < 1 || month > 12 {
			return d, false
		}
		d.month = time.Month(month)
	}

	day, err := strconv.Atoi(group(prefix + "d"))
	if err != nil || day < 1 || day > daysIn(d.year, d.month) {
		return d, false
	}
	d.day = day

	return d, true
}

// matchClock reads an hour/minute pair. present is false when the match has
// no such clock. allow24 accepts "24:00" as the end of the day.
func matchClock(group func(string) string, prefix string, allow24 bool) (hour, minute int, present, ok bool) {
	h := group(prefix + "h")
	if h == "" {
		return 0, 0, false, true
	}

	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, 0, true, false
	}
	minute, err = strconv.Atoi(group(prefix + "min"))
	if err != nil || minute > 59 {
		return 0, 0, true, false
	}

	if marker := group(prefix + "ap"); marker != "" {
		hour, ok = To24Hour(hour, marker)
		if !ok {
			return 0, 0, true, false
		}
		return hour, minute, true, true
	}

	if hour > 23 && !(allow24 && hour == 24 && minute == 0) {
		return 0, 0, true, false
	}
	return hour, minute, true, true
}

// To24Hour converts a 12-hour clock hour with an AM/PM marker.
// 12 AM is hour 0 and 12 PM is hour 12.
func To24Hour(hour int, marker string) (int, bool) {
	if hour < 1 || hour > 12 {
		return 0, false
	}
	marker = strings.ToLower(strings.ReplaceAll(marker, ".", ""))
	switch marker {
	case "am":
		if hour == 12 {
			return 0, true
		}
		return hour, true
	case "pm":
		if hour == 12 {
			return 12, true
		}
		return hour + 12, true
	default:
		return 0, false
	}
}

var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// MonthFromName maps a full or abbreviated English month name to a month.
func MonthFromName(name string) (time.Month, bool) {
	m, ok := monthNames[strings.ToLower(strings.TrimSuffix(name, "."))]
	return m, ok
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
