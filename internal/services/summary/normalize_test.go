package summary

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdoghq/crewdog-client/internal/models"
)

// decodeRaw собирает RawSummary из JSON, как это делает клиент при ответе
// сервера: только так можно отличить явный null от отсутствующего поля.
func decodeRaw(t *testing.T, body string) *models.RawSummary {
	t.Helper()
	var raw models.RawSummary
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return &raw
}

func TestNormalize_Balance(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"только used и cap", `{"status":"active","used":10,"cap":25}`},
		{"только remaining и cap", `{"status":"active","creditsRemaining":7,"cap":25}`},
		{"вложенные счетчики", `{"searches":{"used":2,"cap":5}}`},
		{"только remaining без cap", `{"creditsRemaining":1}`},
		{"пустой снимок", `{}`},
		{"нечисловые значения", `{"used":"ten","cap":"lots"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Normalize(decodeRaw(t, tt.body))

			require.False(t, n.Unlimited)
			require.NotNil(t, n.Remaining)
			assert.Equal(t, n.Cap, n.Used+*n.Remaining,
				"used + remaining должно равняться cap")
			assert.GreaterOrEqual(t, n.Used, 0)
			assert.GreaterOrEqual(t, *n.Remaining, 0)
		})
	}
}

func TestNormalize_UnlimitedImpliesNilRemaining(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"isAdmin true", `{"isAdmin":true}`},
		{"unlimited true", `{"unlimited":true}`},
		{"creditsRemaining null", `{"creditsRemaining":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Normalize(decodeRaw(t, tt.body))
			assert.True(t, n.Unlimited)
			assert.Nil(t, n.Remaining)
		})
	}
}

func TestNormalize_NullVersusAbsent(t *testing.T) {
	withNull := Normalize(decodeRaw(t, `{"creditsRemaining":null}`))
	assert.True(t, withNull.Unlimited, "явный null означает безлимит")

	absent := Normalize(decodeRaw(t, `{}`))
	assert.False(t, absent.Unlimited, "отсутствующее поле безлимитом не является")
	require.NotNil(t, absent.Remaining)
	assert.Equal(t, FreeCap, *absent.Remaining)
}

func TestNormalize_NewFreeUserOverride(t *testing.T) {
	n := Normalize(decodeRaw(t, `{"status":"none","freeTryUsed":false}`))

	assert.False(t, n.Pro)
	assert.False(t, n.Unlimited)
	assert.Equal(t, 0, n.Used)
	assert.Equal(t, FreeCap, n.Cap)
	require.NotNil(t, n.Remaining)
	assert.Equal(t, FreeCap, *n.Remaining)
}

func TestNormalize_OverrideNotTriggeredByPresentCounter(t *testing.T) {
	// Явный нулевой счетчик отключает эвристику нового аккаунта:
	// остаток считается обычной арифметикой от cap, а не форсируется в 3.
	n := Normalize(decodeRaw(t, `{"status":"none","freeTryUsed":false,"cap":10,"used":0}`))

	assert.Equal(t, 10, n.Cap)
	assert.Equal(t, 0, n.Used)
	require.NotNil(t, n.Remaining)
	assert.Equal(t, 10, *n.Remaining)

	// Альтернативное имя флага ведет себя так же.
	n = Normalize(decodeRaw(t, `{"status":"none","freeTrialUsed":false,"creditsRemaining":0}`))
	require.NotNil(t, n.Remaining)
	assert.Equal(t, 0, *n.Remaining, "исчерпанная квота не должна выглядеть свежей")
}

func TestNormalize_ProStatusAllowList(t *testing.T) {
	for _, status := range []string{"active", "trialing", "past_due", "unpaid", "ACTIVE"} {
		raw := &models.RawSummary{Status: &status}
		assert.True(t, Normalize(raw).Pro, "статус %q должен быть платным", status)
	}
	for _, status := range []string{"canceled", "incomplete", "none", ""} {
		raw := &models.RawSummary{Status: &status}
		assert.False(t, Normalize(raw).Pro, "статус %q не должен быть платным", status)
	}
	assert.False(t, Normalize(&models.RawSummary{}).Pro, "отсутствующий статус не платный")
}

func TestNormalize_CapAliasOrder(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"searchCap побеждает cap", `{"searchCap":40,"cap":10}`, 40},
		{"плоский cap побеждает вложенный", `{"cap":10,"quota":{"cap":99}}`, 10},
		{"searches.cap побеждает quota.cap", `{"searches":{"cap":7},"quota":{"cap":99}}`, 7},
		{"дефолт free без алиасов", `{}`, FreeCap},
		{"дефолт pro без алиасов", `{"status":"active"}`, ProCap},
		{"нечисловой алиас пропускается", `{"cap":"many","quota":{"cap":8}}`, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(decodeRaw(t, tt.body)).Cap)
		})
	}
}

func TestNormalize_RemainingAliasOrder(t *testing.T) {
	n := Normalize(decodeRaw(t, `{"cap":20,"remainingCredits":4,"quota":{"remaining":15}}`))
	require.NotNil(t, n.Remaining)
	assert.Equal(t, 4, *n.Remaining, "плоский remainingCredits имеет приоритет")
	assert.Equal(t, 16, n.Used, "used выводится из cap и remaining")
}

func TestNormalize_Passthrough(t *testing.T) {
	n := Normalize(decodeRaw(t, `{
		"status":"active",
		"used":1,
		"renewalDate":"2026-09-01",
		"cancelAtPeriodEnd":true,
		"price":{"amount":19.99,"currency":"USD","interval":"month"}
	}`))

	require.NotNil(t, n.RenewalDate)
	assert.Equal(t, "2026-09-01", *n.RenewalDate)
	assert.True(t, n.CancelAtPeriodEnd)
	require.NotNil(t, n.Price)
	assert.Equal(t, 19.99, n.Price.Amount)
	assert.Equal(t, "USD", n.Price.Currency)
	assert.Equal(t, "active", n.Status)
}

func TestNormalize_NilInput(t *testing.T) {
	assert.NotPanics(t, func() {
		n := Normalize(nil)
		assert.Equal(t, FreeCap, n.Cap)
		assert.Equal(t, "none", n.Status)
	})
}
