package models

import "time"

// AccountQuota — состояние квоты аккаунта в хранилище dev-бэкенда.
// Наружу отдается в сыром виде (RawSummary), нормализацией занимается клиент.
type AccountQuota struct {
	UserUID           string
	Status            string
	SearchCap         int
	Used              int
	Unlimited         bool
	IsAdmin           bool
	FreeTryUsed       bool
	RenewalDate       *time.Time
	CancelAtPeriodEnd bool
}
