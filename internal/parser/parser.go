// Package parser разбирает текстовые торговые сигналы из каналов.
package parser

import (
	"regexp"
	"strings"

	"signal_relay/internal/models"

	"github.com/shopspring/decimal"
)

// разделитель между маркером и значением: ":", ".", "-", "@", пробелы в любом сочетании
const sep = `[\s:.\-@]*`

var (
	reHasAction = regexp.MustCompile(`(?i)(?:BUY|SELL)\s+[A-Z]+`)
	reHasEntry  = regexp.MustCompile(`@\s*[\d.]+`)
	reHasSL     = regexp.MustCompile(`(?i)SL` + sep + `[\d.]+`)

	reAction    = regexp.MustCompile(`(?i)\b(BUY|SELL)\b`)
	reOrderKind = regexp.MustCompile(`(?i)\b(stop|limit)\b`)
	reSymbol    = regexp.MustCompile(`(?i)\b(?:BUY|SELL)\s+([A-Z]{3,6})\b`)
	reEntry     = regexp.MustCompile(`@\s*([\d.]+)`)
	reTP        = regexp.MustCompile(`(?i)TP\d*` + sep + `([\d.]+|open)`)
	reSL        = regexp.MustCompile(`(?i)SL` + sep + `([\d.]+)`)

	reTargetHit = regexp.MustCompile(`(?i)tp\s*\d+\s*hit`)
)

var symbolAliases = map[string]string{
	"GOLD": "XAUUSD",
	"OIL":  "XTIUSD",
}

// IsSignal — быстрая проверка: направление + инструмент, вход через "@" и стоп.
func IsSignal(text string) bool {
	return reHasAction.MatchString(text) && reHasEntry.MatchString(text) && reHasSL.MatchString(text)
}

// Parse превращает текст в ParsedSignal. Второе значение false — это не сигнал.
// Функция чистая: один и тот же текст всегда даёт один и тот же результат.
func Parse(text string) (models.ParsedSignal, bool) {
	if !IsSignal(text) {
		return models.ParsedSignal{}, false
	}

	var sig models.ParsedSignal

	m := reAction.FindStringSubmatch(text)
	if m == nil {
		return models.ParsedSignal{}, false
	}
	sig.Direction = models.ParseDirection(m[1])

	sym := reSymbol.FindStringSubmatch(text)
	if sym == nil {
		return models.ParsedSignal{}, false
	}
	sig.Symbol = NormalizeSymbol(sym[1])

	sig.OrderKind = models.OrderMarket
	if m := reOrderKind.FindStringSubmatch(text); m != nil {
		sig.OrderKind = models.OrderKind(strings.ToLower(m[1]))
	}

	if m := reEntry.FindStringSubmatch(text); m != nil {
		entry, ok := number(m[1])
		if !ok {
			return models.ParsedSignal{}, false
		}
		sig.Entry = decimal.NewNullDecimal(entry)
	}

	m = reSL.FindStringSubmatch(text)
	if m == nil {
		return models.ParsedSignal{}, false
	}
	sl, ok := number(m[1])
	if !ok {
		return models.ParsedSignal{}, false
	}
	sig.StopLoss = sl

	for _, tp := range reTP.FindAllStringSubmatch(text, -1) {
		if strings.EqualFold(tp[1], "open") {
			sig.TakeProfits = append(sig.TakeProfits, models.OpenTarget())
			continue
		}
		// "TP1." без цены и прочий мусор просто пропускаем
		if px, ok := number(tp[1]); ok {
			sig.TakeProfits = append(sig.TakeProfits, models.Target(px))
		}
	}

	return sig, true
}

// NormalizeSymbol — верхний регистр + алиасы вроде GOLD -> XAUUSD.
func NormalizeSymbol(sym string) string {
	s := strings.ToUpper(strings.TrimSpace(sym))
	if alias, ok := symbolAliases[s]; ok {
		return alias
	}
	return s
}

// IsCloseCommand — "закрыть всё" по любому упоминанию close.
func IsCloseCommand(text string) bool {
	return strings.Contains(strings.ToLower(text), "close")
}

// IsTargetHit — сообщения вида "TP1 hit", "tp 2 HIT".
func IsTargetHit(text string) bool {
	return reTargetHit.MatchString(text)
}

func number(raw string) (decimal.Decimal, bool) {
	s := strings.Trim(raw, ".")
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
