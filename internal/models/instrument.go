package models

// InstrumentProfile — статичные параметры инструмента по symbolId брокера.
type InstrumentProfile struct {
	MinVolume   int64 `yaml:"min_volume" mapstructure:"min_volume"`     // шаг объёма (минимальный лот в единицах протокола)
	PipExponent int   `yaml:"pip_exponent" mapstructure:"pip_exponent"` // знаков после запятой в одном пипе
	MoneyDigits int   `yaml:"money_digits" mapstructure:"money_digits"` // точность округления цены стопа
}

// InstrumentTable — таблица профилей; для неизвестных id отдаём Default.
type InstrumentTable struct {
	Default InstrumentProfile           `yaml:"default" mapstructure:"default"`
	ByID    map[int64]InstrumentProfile `yaml:"instruments" mapstructure:"instruments"`
}

func (t InstrumentTable) Lookup(symbolID int64) InstrumentProfile {
	if p, ok := t.ByID[symbolID]; ok {
		return p
	}
	return t.Default
}

// DefaultInstruments — таблица по умолчанию (XAUUSD = 41 и пара экзотики).
func DefaultInstruments() InstrumentTable {
	return InstrumentTable{
		Default: InstrumentProfile{MinVolume: 100000, PipExponent: 5, MoneyDigits: 5},
		ByID: map[int64]InstrumentProfile{
			41:    {MinVolume: 100, PipExponent: 5, MoneyDigits: 2},
			10019: {MinVolume: 5000, PipExponent: 5, MoneyDigits: 5},
			10026: {MinVolume: 100, PipExponent: 5, MoneyDigits: 5},
		},
	}
}
