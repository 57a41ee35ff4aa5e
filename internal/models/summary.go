// Package models содержит доменные структуры приложения: сырой и
// нормализованный снимки квоты аккаунта, пользователя и сессию.
// Структуры используются в бизнес-логике, клиентских сервисах и хранилище.
package models

import "encoding/json"

// Field хранит значение поля вместе с фактом его присутствия в JSON.
// Сервер отдаёт квоту в нескольких альтернативных формах, и для части
// правил нормализации важно отличать явный null от отсутствующего поля.
type Field struct {
	Present bool
	Value   any
}

// UnmarshalJSON помечает поле как присутствующее даже при явном null.
func (f *Field) UnmarshalJSON(data []byte) error {
	f.Present = true
	if string(data) == "null" {
		f.Value = nil
		return nil
	}
	return json.Unmarshal(data, &f.Value)
}

// MarshalJSON сериализует значение поля как есть.
func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Value)
}

// IsZero сообщает encoding/json (тег omitzero), что поле не было задано.
func (f Field) IsZero() bool {
	return !f.Present
}

// Number возвращает числовое значение поля, если оно присутствует и
// является конечным числом. Строки, булевы значения и null числом не считаются.
func (f Field) Number() (float64, bool) {
	if !f.Present {
		return 0, false
	}
	switch v := f.Value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		n, err := v.Float64()
		return n, err == nil
	default:
		return 0, false
	}
}

// FieldOf создает присутствующее поле с заданным значением.
func FieldOf(v any) Field {
	return Field{Present: true, Value: v}
}

// NullField создает присутствующее поле со значением null.
func NullField() Field {
	return Field{Present: true, Value: nil}
}

// RawQuotaGroup — вложенная группа счётчиков квоты ("searches" или "quota").
type RawQuotaGroup struct {
	Cap       Field `json:"cap,omitzero"`
	Remaining Field `json:"remaining,omitzero"`
	Used      Field `json:"used,omitzero"`
}

// RawSummary — ненадёжный снимок квоты аккаунта в том виде, в котором его
// отдаёт биллинговый бэкенд. Ни одно поле не гарантировано; одно и то же
// понятие может приходить под несколькими именами и на разных уровнях
// вложенности. Числовые поля могут приходить нечисловыми значениями —
// такие значения считаются отсутствующими.
type RawSummary struct {
	Status            *string        `json:"status,omitempty"`
	Unlimited         *bool          `json:"unlimited,omitempty"`
	IsAdmin           *bool          `json:"isAdmin,omitempty"`
	SearchCap         Field          `json:"searchCap,omitzero"`
	Cap               Field          `json:"cap,omitzero"`
	Used              Field          `json:"used,omitzero"`
	CreditsRemaining  Field          `json:"creditsRemaining,omitzero"`
	RemainingCredits  Field          `json:"remainingCredits,omitzero"`
	Searches          *RawQuotaGroup `json:"searches,omitempty"`
	Quota             *RawQuotaGroup `json:"quota,omitempty"`
	RenewalDate       *string        `json:"renewalDate,omitempty"`
	CancelAtPeriodEnd *bool          `json:"cancelAtPeriodEnd,omitempty"`
	Price             *Price         `json:"price,omitempty"`
	FreeTryUsed       *bool          `json:"freeTryUsed,omitempty"`
	FreeTrialUsed     *bool          `json:"freeTrialUsed,omitempty"`
}

// Price описывает стоимость текущего тарифа для отображения.
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Interval string  `json:"interval"`
}

// NormalizedSummary — каноничный снимок квоты аккаунта после нормализации.
//
// Инвариант: для неограниченного тарифа Remaining == nil; для ограниченного
// Used + *Remaining == Cap.
type NormalizedSummary struct {
	Pro               bool    `json:"pro"`
	Unlimited         bool    `json:"unlimited"`
	IsAdmin           bool    `json:"isAdmin"`
	Cap               int     `json:"cap"`
	Used              int     `json:"used"`
	Remaining         *int    `json:"remaining"` // nil — квота не ограничена
	RenewalDate       *string `json:"renewalDate"`
	CancelAtPeriodEnd bool    `json:"cancelAtPeriodEnd"`
	Price             *Price  `json:"price,omitempty"`
	Status            string  `json:"status,omitempty"`
}
