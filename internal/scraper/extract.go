package scraper

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/pfrederiksen/fourscal/internal/selector"
)

// Class name stems used by the site. The generated suffix changes with every
// deploy, so they are only ever matched as substrings or prefixes.
const (
	titleClass     = "EventDetailOverviewScreen_title"
	infoValueClass = "EventInfoItem_value"
	richTextClass  = "RichText_component"
)

func classContains(v string) selector.Strategy {
	return selector.Strategy{Kind: selector.ClassContains, Value: v}
}

func classPrefix(v string) selector.Strategy {
	return selector.Strategy{Kind: selector.ClassPrefix, Value: v}
}

func class(v string) selector.Strategy {
	return selector.Strategy{Kind: selector.Class, Value: v}
}

func tag(v string) selector.Strategy {
	return selector.Strategy{Kind: selector.Tag, Value: v}
}

func testID(v string) selector.Strategy {
	return selector.Strategy{Kind: selector.Attribute, Attr: "data-testid", Value: v}
}

var englishMonthRE = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2}\b`)

// looksLikeDate accepts text carrying date or time tokens.
var looksLikeDate = selector.AnyOf(
	selector.ContainsAny("年", "月", "日", ":", "：", "時"),
	englishMonthRE.MatchString,
)

// looksLikePlace accepts text with place-indicative tokens. The site uses the
// same info-value class for date, place and organiser, so this is the only
// way to tell them apart.
var looksLikePlace = selector.AnyOf(
	selector.ContainsAny(
		"東京", "大阪", "京都", "〒", "日本", "羽田", "空港", "Zone", "階", "丁目",
		"区", "市", "県", "都", "府", "オンライン", "Zoom", "Teams", "Meet",
	),
	selector.ContainsAnyFold("online", "venue"),
)

var titleCandidates = func() []selector.Candidate {
	longEnough := selector.MinLength(3)
	strategies := []selector.Strategy{
		classContains(titleClass),
		classPrefix(titleClass),
		tag("h1"),
		tag("h2"),
		class("event-title"),
		class("title"),
		testID("event-title"),
		tag("title"),
	}
	candidates := make([]selector.Candidate, len(strategies))
	for i, s := range strategies {
		candidates[i] = selector.Candidate{Strategy: s, Accept: longEnough}
	}
	return candidates
}()

var dateCandidates = []selector.Candidate{
	{Strategy: classContains(infoValueClass), Accept: looksLikeDate, Mode: selector.EachElement},
	{Strategy: class("date"), Accept: looksLikeDate},
	{Strategy: class("event-date"), Accept: looksLikeDate},
	{Strategy: class("datetime"), Accept: looksLikeDate},
	{Strategy: class("time"), Accept: looksLikeDate},
	{Strategy: testID("event-date"), Accept: looksLikeDate},
	{Strategy: class("event-time"), Accept: looksLikeDate},
	{Strategy: class("schedule"), Accept: looksLikeDate},
	{Strategy: tag("time"), Accept: looksLikeDate},
}

var locationCandidates = func() []selector.Candidate {
	generic := selector.MinLength(2)
	// the shared info-value class also holds the date, so date-like text is skipped there
	infoValue := selector.All(generic, selector.Not(looksLikeDate))
	return []selector.Candidate{
		{Strategy: classContains(infoValueClass), Accept: looksLikePlace, Mode: selector.EachElement},
		{Strategy: class("location"), Accept: generic},
		{Strategy: class("venue"), Accept: generic},
		{Strategy: class("place"), Accept: generic},
		{Strategy: class("address"), Accept: generic},
		{Strategy: testID("location"), Accept: generic},
		{Strategy: class("event-location"), Accept: generic},
		{Strategy: classContains(infoValueClass), Accept: infoValue, Mode: selector.EachElement},
	}
}()

var descriptionCandidates = func() []selector.Candidate {
	substantial := selector.MinLength(10)
	// the last resort skips blocks that are mostly date text
	prose := selector.All(selector.MinLength(50), selector.Not(selector.ContainsAny("年", "時")))
	return []selector.Candidate{
		{Strategy: classContains(richTextClass)},
		{Strategy: classPrefix(richTextClass)},
		{Strategy: class("description"), Accept: substantial},
		{Strategy: class("event-description"), Accept: substantial},
		{Strategy: class("content"), Accept: substantial},
		{Strategy: class("summary"), Accept: substantial},
		{Strategy: class("details"), Accept: substantial},
		{Strategy: testID("description"), Accept: substantial},
		{Strategy: class("event-content"), Accept: substantial},
		{Strategy: class("rich-text"), Accept: substantial},
		{Strategy: tag("p"), Accept: prose, Mode: selector.EachElement},
		{Strategy: tag("div"), Accept: prose, Mode: selector.EachElement},
	}
}()

func extractTitle(doc *goquery.Document) (string, bool) {
	return selector.Resolve(doc.Selection, titleCandidates)
}

func extractDateText(doc *goquery.Document) (string, bool) {
	return selector.Resolve(doc.Selection, dateCandidates)
}

func extractLocation(doc *goquery.Document) (string, bool) {
	return selector.Resolve(doc.Selection, locationCandidates)
}

// extractDescription returns the formatted description body without the
// citation line. It falls back to a readability pass over the whole page.
func extractDescription(doc *goquery.Document, sourceURL string) (string, bool) {
	if el, _, ok := selector.First(doc.Selection, descriptionCandidates); ok {
		return formatDescription(el), true
	}
	if text, ok := readableText(doc, sourceURL); ok {
		return text, true
	}
	return "", false
}

var (
	blankLinesRE    = regexp.MustCompile(`\n\s*\n\s*\n+`)
	horizontalRE    = regexp.MustCompile(`[ \t]+`)
	newlineSpacesRE = regexp.MustCompile(` *\n *`)
)

// formatDescription turns a rich-text block into plain text: line breaks
// become newlines, paragraphs are separated by a blank line and whitespace
// is tidied.
func formatDescription(el *goquery.Selection) string {
	block := el.Clone()
	block.Find("br").ReplaceWithHtml("\n")

	var b strings.Builder
	block.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			b.WriteString(text)
			b.WriteString("\n\n")
		}
	})

	text := b.String()
	if strings.TrimSpace(text) == "" {
		text = strings.TrimSpace(block.Text())
	}

	text = normalizeWhitespace(text)
	if text == "" {
		return strings.TrimSpace(el.Text())
	}
	return text
}

func normalizeWhitespace(text string) string {
	text = blankLinesRE.ReplaceAllString(text, "\n\n")
	text = horizontalRE.ReplaceAllString(text, " ")
	text = newlineSpacesRE.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

// readableText runs go-readability over the page and returns its main text.
func readableText(doc *goquery.Document, sourceURL string) (string, bool) {
	html, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return "", false
	}
	pageURL, err := url.Parse(sourceURL)
	if err != nil {
		return "", false
	}

	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return "", false
	}

	text := normalizeWhitespace(article.TextContent)
	if len([]rune(text)) <= 50 {
		return "", false
	}
	return text, true
}
