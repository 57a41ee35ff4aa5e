// Package summary реализует нормализацию снимка квоты аккаунта.
//
// Биллинговый бэкенд отдаёт квоту в нескольких альтернативных формах:
// одно и то же понятие (лимит, остаток, израсходовано) может приходить под
// разными именами и на разных уровнях вложенности, а любое поле может
// отсутствовать. Normalize сводит все формы к единому каноничному снимку
// с фиксированными инвариантами и никогда не возвращает ошибку.
package summary

import (
	"strings"

	"github.com/crewdoghq/crewdog-client/internal/models"
)

const (
	// FreeCap — лимит поисков бесплатного тарифа.
	FreeCap = 3
	// ProCap — лимит поисков платного тарифа по умолчанию.
	ProCap = 25
)

// proStatuses — статусы подписки, при которых тариф считается платным.
var proStatuses = map[string]struct{}{
	"active":   {},
	"trialing": {},
	"past_due": {},
	"unpaid":   {},
}

// accessor — именованный доступ к одному из альтернативных полей квоты.
// Порядок в списках ниже фиксирует приоритет: побеждает первое
// присутствующее поле.
type accessor struct {
	name string
	get  func(*models.RawSummary) models.Field
}

var capAliases = []accessor{
	{"searchCap", func(r *models.RawSummary) models.Field { return r.SearchCap }},
	{"cap", func(r *models.RawSummary) models.Field { return r.Cap }},
	{"searches.cap", func(r *models.RawSummary) models.Field { return group(r.Searches).Cap }},
	{"quota.cap", func(r *models.RawSummary) models.Field { return group(r.Quota).Cap }},
}

var remainingAliases = []accessor{
	{"creditsRemaining", func(r *models.RawSummary) models.Field { return r.CreditsRemaining }},
	{"remainingCredits", func(r *models.RawSummary) models.Field { return r.RemainingCredits }},
	{"searches.remaining", func(r *models.RawSummary) models.Field { return group(r.Searches).Remaining }},
	{"quota.remaining", func(r *models.RawSummary) models.Field { return group(r.Quota).Remaining }},
}

var usedAliases = []accessor{
	{"used", func(r *models.RawSummary) models.Field { return r.Used }},
	{"searches.used", func(r *models.RawSummary) models.Field { return group(r.Searches).Used }},
	{"quota.used", func(r *models.RawSummary) models.Field { return group(r.Quota).Used }},
}

func group(g *models.RawQuotaGroup) models.RawQuotaGroup {
	if g == nil {
		return models.RawQuotaGroup{}
	}
	return *g
}

// resolve возвращает первое конечное числовое значение среди алиасов
// и признак того, что хотя бы один алиас присутствовал в сыром снимке.
func resolve(raw *models.RawSummary, aliases []accessor) (value float64, ok, anyPresent bool) {
	for _, a := range aliases {
		f := a.get(raw)
		if f.Present {
			anyPresent = true
		}
		if !ok {
			if n, isNum := f.Number(); isNum {
				value, ok = n, true
			}
		}
	}
	return value, ok, anyPresent
}

// Normalize сводит сырой снимок квоты к каноничному виду.
//
// Функция чистая и детерминированная: без побочных эффектов, без ввода-
// вывода. Отсутствующие и искажённые поля деградируют к задокументированным
// значениям по умолчанию, никакая форма входа не приводит к ошибке.
func Normalize(raw *models.RawSummary) models.NormalizedSummary {
	if raw == nil {
		raw = &models.RawSummary{}
	}

	isAdmin := raw.IsAdmin != nil && *raw.IsAdmin

	// Явный null в creditsRemaining означает безлимит; отсутствующее поле —
	// нет, поэтому проверка идёт через Present, а не через "ложность".
	unlimited := isAdmin ||
		(raw.Unlimited != nil && *raw.Unlimited) ||
		(raw.CreditsRemaining.Present && raw.CreditsRemaining.Value == nil)

	status := "none"
	if raw.Status != nil {
		status = *raw.Status
	}
	_, pro := proStatuses[strings.ToLower(status)]

	// Плановый дефолт — последний кандидат в списке алиасов cap, поэтому
	// cap разрешается всегда.
	capDefault := FreeCap
	if pro {
		capDefault = ProCap
	}
	capValue, capOK, _ := resolve(raw, capAliases)
	if !capOK {
		capValue = float64(capDefault)
	}

	remaining, remainingOK, remainingPresent := resolve(raw, remainingAliases)
	used, usedOK, usedPresent := resolve(raw, usedAliases)

	if !usedOK && remainingOK {
		used, usedOK = max(0, capValue-remaining), true
	}
	if !remainingOK && usedOK {
		remaining, remainingOK = max(0, capValue-used), true
	}

	freeTryUsed := raw.FreeTryUsed
	if freeTryUsed == nil {
		freeTryUsed = raw.FreeTrialUsed
	}

	// Свежесозданный бесплатный аккаунт: сервер ещё не завёл ни одного
	// счётчика, а флаг использованного пробного поиска явно false. Общая
	// арифметика показала бы исчерпанную квоту, поэтому счётчики
	// принудительно обнуляются. Одного присутствующего счётчика, даже
	// нулевого, достаточно, чтобы правило не сработало.
	if !unlimited && !pro &&
		freeTryUsed != nil && !*freeTryUsed &&
		!remainingPresent && !usedPresent {
		used, usedOK = 0, true
		remaining, remainingOK = FreeCap, true
	}

	if !usedOK {
		used = 0
	}
	used = max(0, used)

	n := models.NormalizedSummary{
		Pro:         pro,
		Unlimited:   unlimited,
		IsAdmin:     isAdmin,
		Cap:         int(capValue),
		Used:        int(used),
		RenewalDate: raw.RenewalDate,
		Price:       raw.Price,
		Status:      status,
	}
	if raw.CancelAtPeriodEnd != nil {
		n.CancelAtPeriodEnd = *raw.CancelAtPeriodEnd
	}
	if !unlimited {
		if !remainingOK {
			remaining = capValue
		}
		r := int(max(0, remaining))
		n.Remaining = &r
	}
	return n
}
