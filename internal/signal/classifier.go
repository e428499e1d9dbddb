package signal

import (
	"regexp"
	"strconv"
	"strings"

	"degen-autotrader/internal/domain"
)

var (
	tokenPattern     = regexp.MustCompile(`\$[A-Za-z0-9]+`)
	tokenPathPattern = regexp.MustCompile(`token/([a-zA-Z0-9]{32,})`)
	caPattern        = regexp.MustCompile(`CA:\s*([a-zA-Z0-9]{32,})`)
	solanaPattern    = regexp.MustCompile(`solana/([a-zA-Z0-9]{32,})`)
	linkPattern      = regexp.MustCompile(`https?://\S+`)
	bandPattern      = regexp.MustCompile(`(?i)(?:around|wait for|dip around|good entry is around)\s+(\d+k?)-(\d+k?)`)
	buyingPattern    = regexp.MustCompile(`(?i)\b(buying|bought)\s+(here|this)`)
	rugMePattern     = regexp.MustCompile(`(?i)\brug\s+me\s+or\s+give\s+me\s+\d+-\d+x\b`)
)

var riskyPhrases = []string{
	"DYOR and mind your own risk",
	"DYOR and find your entry",
	"near ATH",
	"chart is near ATH",
	"Moon or dust",
	"moon or dust",
}

var associationPhrases = []string{
	"ticket is to bullish",
	"Beta play",
	"got reposted by",
	"CZ",
	"Binance",
}

// Classifier turns free text into a TradeSignal. It holds no state and is safe
// for concurrent use.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

func (c *Classifier) Classify(text string) domain.TradeSignal {
	return Classify(text)
}

// Classify never fails: unmatched text yields NEUTRAL with empty fields.
func Classify(text string) domain.TradeSignal {
	return domain.TradeSignal{
		Text:           text,
		Token:          findToken(text),
		Address:        findAddress(text),
		Links:          findLinks(text),
		Bands:          findBands(text),
		Classification: classify(text),
	}
}

func findToken(text string) string {
	return tokenPattern.FindString(text)
}

// findAddress applies the three address patterns in priority order.
func findAddress(text string) string {
	for _, p := range []*regexp.Regexp{tokenPathPattern, caPattern, solanaPattern} {
		if m := p.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

func findLinks(text string) []string {
	links := linkPattern.FindAllString(text, -1)
	if links == nil {
		return []string{}
	}
	return links
}

func findBands(text string) []domain.PriceBand {
	bands := make([]domain.PriceBand, 0)
	for _, m := range bandPattern.FindAllStringSubmatch(text, -1) {
		low, ok := parseBound(m[1])
		if !ok {
			continue
		}
		high, ok := parseBound(m[2])
		if !ok {
			continue
		}
		bands = append(bands, domain.PriceBand{Low: low, High: high})
	}
	return bands
}

func parseBound(raw string) (float64, bool) {
	lower := strings.ToLower(raw)
	mult := 1
	if strings.HasSuffix(lower, "k") {
		mult = 1000
		lower = strings.TrimSuffix(lower, "k")
	}
	n, err := strconv.Atoi(lower)
	if err != nil {
		return 0, false
	}
	return float64(n * mult), true
}

func classify(text string) domain.Classification {
	if bandPattern.MatchString(text) {
		return domain.ClassDeferredBuy
	}
	if isAggressiveEntry(text) {
		return domain.ClassConfidentBuy
	}
	if containsAny(text, riskyPhrases) {
		return domain.ClassRiskyBuy
	}
	if containsAny(text, associationPhrases) || isAssociationCaseless(text) {
		return domain.ClassConfidentBuy
	}
	return domain.ClassNeutral
}

func isAggressiveEntry(text string) bool {
	switch {
	case strings.Contains(text, "ape"):
		// also covers "aped"
		return true
	case strings.Contains(text, "gambled") && (strings.Contains(text, "hit") || strings.Contains(text, "ATH")):
		return true
	case strings.Contains(text, "hype") && strings.Contains(text, "dip floor"):
		return true
	case strings.Contains(strings.ToLower(text), "good"):
		return true
	}
	return buyingPattern.MatchString(text) || rugMePattern.MatchString(text)
}

func isAssociationCaseless(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "new concept") || strings.Contains(lower, "meme")
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
