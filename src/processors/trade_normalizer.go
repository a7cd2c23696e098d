package processors

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/username/estruturadas/backend/src/logger"
	"github.com/username/estruturadas/backend/src/models"
)

// tradeNormalizerImpl implements the TradeNormalizer interface.
type tradeNormalizerImpl struct{}

// NewTradeNormalizer creates a new instance of TradeNormalizer.
func NewTradeNormalizer() TradeNormalizer {
	return &tradeNormalizerImpl{}
}

// equitySegments are the market-segment labels that settle as plain
// stock even though some of them originate from option exercises.
var equitySegments = map[string]bool{
	"EXERC OPC VENDA":  true,
	"EXERC OPC COMPRA": true,
	"A VISTA":          true,
	"VISTA":            true,
	"FRACIONARIO":      true,
}

// strikePattern matches the first decimal number of the specification
// field after the locale comma has been normalized to a dot.
var strikePattern = regexp.MustCompile(`(\d+\.\d+)`)

// seriesLetterOffset is the position of the option series letter inside
// the specification field (e.g. "PETRA120,00" carries 'A' at offset 4).
const seriesLetterOffset = 4

// Normalize classifies every trade in place. Derivations that fail
// (unparseable strike, unknown series letter) leave the corresponding
// field nil; a bad row never aborts the batch. Rerunning on already
// classified trades reproduces the same values.
func (p *tradeNormalizerImpl) Normalize(trades []models.Trade, calendar []models.ExpirationEntry) {
	expirations := groupExpirationsByLetter(calendar)

	for i := range trades {
		t := &trades[i]
		t.InstrumentKind = classifyKind(t.MarketSegment)
		t.OptionRight = deriveRight(t.MarketSegment)
		t.Strike = extractStrike(t.Specification)
		t.SeriesLetter = extractSeriesLetter(t.Specification)

		if t.SeriesLetter != nil {
			t.Expiration = resolveExpiration(expirations, *t.SeriesLetter, t.RegistrationDate)
		} else {
			t.Expiration = nil
		}
	}
}

func classifyKind(segment string) string {
	label := strings.ToUpper(strings.TrimSpace(segment))
	if strings.HasPrefix(label, "OPCAO") {
		return models.KindOption
	}
	if !equitySegments[label] {
		logger.L.Debug("Unknown market segment treated as equity", "segment", segment)
	}
	return models.KindEquity
}

func deriveRight(segment string) *string {
	label := strings.ToUpper(segment)
	if strings.Contains(label, "COMPRA") {
		right := models.RightCall
		return &right
	}
	if strings.Contains(label, "VENDA") {
		right := models.RightPut
		return &right
	}
	return nil
}

// extractStrike pulls the strike price out of the free-text
// specification field. Returns nil when no decimal is present; the
// trade simply cannot be settled until better data arrives.
func extractStrike(spec string) *float64 {
	cleaned := strings.ReplaceAll(strings.TrimSpace(spec), ",", ".")
	match := strikePattern.FindStringSubmatch(cleaned)
	if match == nil {
		return nil
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return nil
	}
	return &value
}

func extractSeriesLetter(spec string) *string {
	runes := []rune(strings.TrimSpace(spec))
	if len(runes) <= seriesLetterOffset {
		return nil
	}
	letter := strings.ToUpper(string(runes[seriesLetterOffset]))
	return &letter
}

func groupExpirationsByLetter(calendar []models.ExpirationEntry) map[string][]time.Time {
	grouped := make(map[string][]time.Time)
	for _, entry := range calendar {
		letter := strings.ToUpper(strings.TrimSpace(entry.LetterCode))
		grouped[letter] = append(grouped[letter], entry.ExpirationDate)
	}
	for letter := range grouped {
		dates := grouped[letter]
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	}
	return grouped
}

// resolveExpiration picks the smallest expiration strictly after the
// registration date for the series letter. The same letter repeats
// every year, so "next future expiration" is the only correct reading.
func resolveExpiration(expirations map[string][]time.Time, letter string, registration time.Time) *time.Time {
	for _, date := range expirations[letter] {
		if date.After(registration) {
			d := date
			return &d
		}
	}
	return nil
}
