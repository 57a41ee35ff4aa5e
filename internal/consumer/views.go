package consumer

import (
	"github.com/crewdoghq/crewdog-client/internal/models"
	"github.com/crewdoghq/crewdog-client/internal/services/summary"
)

// Метки тарифов для отображения. Производные значения всегда вычисляются
// заново из сводки и нигде не хранятся.
const (
	PlanAdmin = "Admin"
	PlanPro   = "Pro"
	PlanFree  = "Free"
)

// PlanLabel возвращает метку тарифа для отображения.
func PlanLabel(s models.NormalizedSummary) string {
	switch {
	case s.IsAdmin:
		return PlanAdmin
	case s.Pro || s.Unlimited || s.Cap > summary.FreeCap:
		return PlanPro
	default:
		return PlanFree
	}
}

// DisplayCap возвращает потолок квоты для отображения. Для безлимитных
// аккаунтов потолка нет, второй результат false.
func DisplayCap(s models.NormalizedSummary) (int, bool) {
	if s.Unlimited {
		return 0, false
	}
	return s.Cap, true
}

// DisplayUsed возвращает счетчик использованных поисков, зажатый потолком:
// показывать "26 из 25" нельзя, даже если сервер так считает.
func DisplayUsed(s models.NormalizedSummary) int {
	if s.Unlimited {
		return s.Used
	}
	if s.Used > s.Cap {
		return s.Cap
	}
	return s.Used
}

// DisplayRemaining возвращает остаток поисков. Для безлимитных аккаунтов
// остатка нет, второй результат false.
func DisplayRemaining(s models.NormalizedSummary) (int, bool) {
	if s.Unlimited || s.Remaining == nil {
		return 0, false
	}
	return *s.Remaining, true
}
