package school

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func calendar() *School {
	return &School{
		Sessions: []Session{
			{
				Name: "2025/2026",
				Terms: []TermPeriod{
					{No: 3, StartDate: day(2026, 4, 27), EndDate: day(2026, 7, 24)},
				},
			},
			{
				Name: "2026/2027",
				Terms: []TermPeriod{
					{No: 1, StartDate: day(2026, 9, 14), EndDate: day(2026, 12, 18)},
					{No: 2, StartDate: day(2027, 1, 11), EndDate: day(2027, 4, 9)},
				},
			},
		},
		FeeItems: []FeeItem{
			{Name: "tuition", Compulsory: true, Amount: 45000, Session: "2026/2027", Term: 1},
			{Name: "pta levy", Compulsory: true, Amount: 2000, Session: "2026/2027", Term: 1},
			{Name: "bus", Amount: 10000, Session: "2026/2027", Term: 1},
			{Name: "tuition", Compulsory: true, Amount: 45000, Session: "2026/2027", Term: 2},
		},
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCurrentSession(t *testing.T) {
	sc := calendar()

	assert.Equal(t, "2025/2026", sc.CurrentSession(day(2026, 5, 1)))
	assert.Equal(t, "2026/2027", sc.CurrentSession(day(2026, 10, 1)))
	assert.Equal(t, "2026/2027", sc.CurrentSession(day(2027, 2, 1)))

	// Holidays fall between term periods.
	assert.Equal(t, "", sc.CurrentSession(day(2026, 8, 15)))
}

func TestCompulsoryFeesFor(t *testing.T) {
	sc := calendar()

	fees := sc.CompulsoryFeesFor("2026/2027", 1)
	assert.Len(t, fees, 2)
	for _, f := range fees {
		assert.True(t, f.Compulsory)
	}

	assert.Len(t, sc.FeesFor("2026/2027", 1), 3)
	assert.Empty(t, sc.CompulsoryFeesFor("2026/2027", 3))
}
