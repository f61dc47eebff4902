package entity

import (
	"fmt"
	"time"
)

// DateLayout formato de fecha de negocio en la API y en los logs.
const DateLayout = "2006-01-02"

// DateOf devuelve la fecha de negocio de t en la zona loc, normalizada a medianoche UTC
// para que dos fechas iguales siempre comparen iguales.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate interpreta s con DateLayout.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("fecha inválida %q: %w", s, err)
	}
	return t, nil
}

// NormalizeDate descarta la hora de una fecha ya expresada en UTC.
func NormalizeDate(t time.Time) time.Time {
	return DateOf(t, time.UTC)
}

// NextDay y PrevDay avanzan por días civiles (sin efectos de horario de verano).
func NextDay(d time.Time) time.Time { return d.AddDate(0, 0, 1) }

func PrevDay(d time.Time) time.Time { return d.AddDate(0, 0, -1) }

// DaysBetween cantidad de días de from a to (negativa si to es anterior).
func DaysBetween(from, to time.Time) int {
	return int(NormalizeDate(to).Sub(NormalizeDate(from)).Hours() / 24)
}
