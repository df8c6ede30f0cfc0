package selector

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Kind is how a Strategy locates elements.
type Kind int

const (
	// Tag matches elements by tag name, e.g. "h1".
	Tag Kind = iota
	// Class matches an exact class token, e.g. "event-title".
	Class
	// ClassContains matches a substring of the class attribute. Use it for
	// generated class names like "EventInfoItem_value__x7Kq2".
	ClassContains
	// ClassPrefix matches the start of the class attribute.
	ClassPrefix
	// Attribute matches an attribute with an exact value, e.g. data-testid.
	Attribute
)

func (k Kind) String() string {
	switch k {
	case Tag:
		return "tag"
	case Class:
		return "class"
	case ClassContains:
		return "class-contains"
	case ClassPrefix:
		return "class-prefix"
	case Attribute:
		return "attribute"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Strategy locates zero or more elements in a document.
type Strategy struct {
	Kind  Kind
	Value string
	// Attr is the attribute name for Attribute strategies.
	Attr string
}

// CSS returns the CSS selector equivalent of the strategy.
func (s Strategy) CSS() string {
	switch s.Kind {
	case Tag:
		return s.Value
	case Class:
		return "." + s.Value
	case ClassContains:
		return fmt.Sprintf(`[class*=%q]`, s.Value)
	case ClassPrefix:
		return fmt.Sprintf(`[class^=%q]`, s.Value)
	case Attribute:
		return fmt.Sprintf(`[%s=%q]`, s.Attr, s.Value)
	default:
		return ""
	}
}

func (s Strategy) String() string {
	return s.Kind.String() + " " + s.CSS()
}

// Predicate decides whether extracted text is plausible for a field.
type Predicate func(text string) bool

// Mode controls which matched elements are offered to the predicate.
type Mode int

const (
	// FirstElement offers only the first matched element.
	FirstElement Mode = iota
	// EachElement offers every matched element in document order.
	EachElement
)

// Candidate pairs a strategy with the predicate its text must satisfy.
type Candidate struct {
	Strategy Strategy
	Accept   Predicate
	Mode     Mode
}

// Resolve returns the text of the first candidate whose element passes its
// predicate. It returns false when every candidate is exhausted.
func Resolve(root *goquery.Selection, candidates []Candidate) (string, bool) {
	_, text, ok := First(root, candidates)
	return text, ok
}

// First is like Resolve but also returns the accepted element.
func First(root *goquery.Selection, candidates []Candidate) (*goquery.Selection, string, bool) {
	if root == nil {
		return nil, "", false
	}

	for _, c := range candidates {
		matcher, err := cascadia.Compile(c.Strategy.CSS())
		if err != nil {
			// an unusable selector is the same as one matching nothing
			continue
		}

		matched := root.FindMatcher(matcher)
		if matched.Length() == 0 {
			continue
		}
		if c.Mode == FirstElement {
			matched = matched.First()
		}

		for i := range matched.Length() {
			el := matched.Eq(i)
			text := strings.TrimSpace(el.Text())
			if text == "" {
				continue
			}
			if c.Accept == nil || c.Accept(text) {
				return el, text, true
			}
		}
	}

	return nil, "", false
}

// NonEmpty accepts any text. Resolve already skips blank text.
func NonEmpty(text string) bool {
	return strings.TrimSpace(text) != ""
}

// MinLength accepts text longer than n runes.
func MinLength(n int) Predicate {
	return func(text string) bool {
		return utf8.RuneCountInString(text) > n
	}
}

// ContainsAny accepts text containing at least one of tokens.
func ContainsAny(tokens ...string) Predicate {
	return func(text string) bool {
		for _, tok := range tokens {
			if strings.Contains(text, tok) {
				return true
			}
		}
		return false
	}
}

// ContainsAnyFold is ContainsAny ignoring case.
func ContainsAnyFold(tokens ...string) Predicate {
	lowered := make([]string, len(tokens))
	for i, tok := range tokens {
		lowered[i] = strings.ToLower(tok)
	}
	return func(text string) bool {
		return ContainsAny(lowered...)(strings.ToLower(text))
	}
}

// All accepts text that passes every predicate.
func All(preds ...Predicate) Predicate {
	return func(text string) bool {
		for _, p := range preds {
			if !p(text) {
				return false
			}
		}
		return true
	}
}

// AnyOf accepts text that passes at least one predicate.
func AnyOf(preds ...Predicate) Predicate {
	return func(text string) bool {
		for _, p := range preds {
			if p(text) {
				return true
			}
		}
		return false
	}
}

// Not inverts a predicate.
func Not(p Predicate) Predicate {
	return func(text string) bool {
		return !p(text)
	}
}
