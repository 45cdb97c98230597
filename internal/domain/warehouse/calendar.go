package warehouse

import "time"

// BuildCalendar produces one TimeRow per day from first through last
// inclusive. Weekday numbering is ISO (Monday=1); the fiscal calendar tracks
// the civil calendar.
func BuildCalendar(first, last time.Time) []TimeRow {
	start := midnight(first)
	end := midnight(last)

	var rows []TimeRow
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		y, m, day := d.Date()
		quarter := (int(m)-1)/3 + 1
		_, week := d.ISOWeek()
		weekday := int(d.Weekday())
		if weekday == 0 {
			weekday = 7
		}

		rows = append(rows, TimeRow{
			DateID:        y*10000 + int(m)*100 + day,
			FullDate:      d,
			Year:          y,
			Quarter:       quarter,
			Month:         int(m),
			MonthName:     m.String(),
			Week:          week,
			DayOfMonth:    day,
			DayOfWeek:     weekday,
			DayName:       d.Weekday().String(),
			IsWeekend:     weekday >= 6,
			IsHoliday:     false,
			FiscalYear:    y,
			FiscalQuarter: quarter,
		})
	}
	return rows
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
