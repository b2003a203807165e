package medicines

import (
	"sort"
	"time"
)

// TimeWindow define las franjas horarias soportadas.
// @Enum morning, afternoon, evening, night
type TimeWindow string

const (
	WindowMorning   TimeWindow = "morning"
	WindowAfternoon TimeWindow = "afternoon"
	WindowEvening   TimeWindow = "evening"
	WindowNight     TimeWindow = "night"
)

// Límites por defecto de cada franja (HH:MM). Una medicina puede
// sobreescribirlos con window_start/window_end.
var defaultBounds = map[TimeWindow][2]string{
	WindowMorning:   {"06:00", "12:00"},
	WindowAfternoon: {"12:00", "17:00"},
	WindowEvening:   {"17:00", "21:00"},
	WindowNight:     {"21:00", "23:59"},
}

func (w TimeWindow) Valid() bool {
	_, ok := defaultBounds[w]
	return ok
}

// DefaultBounds devuelve inicio/fin por defecto de la franja.
// Para franjas inválidas devuelve cadenas vacías.
func (w TimeWindow) DefaultBounds() (start, end string) {
	b, ok := defaultBounds[w]
	if !ok {
		return "", ""
	}
	return b[0], b[1]
}

// AllWindows en orden cronológico.
func AllWindows() []TimeWindow {
	return []TimeWindow{WindowMorning, WindowAfternoon, WindowEvening, WindowNight}
}

// Weekday es la etiqueta corta de día de semana usada en el schedule.
// @Enum mon, tue, wed, thu, fri, sat, sun
type Weekday string

const (
	Monday    Weekday = "mon"
	Tuesday   Weekday = "tue"
	Wednesday Weekday = "wed"
	Thursday  Weekday = "thu"
	Friday    Weekday = "fri"
	Saturday  Weekday = "sat"
	Sunday    Weekday = "sun"
)

var weekdayTags = map[time.Weekday]Weekday{
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
	time.Sunday:    Sunday,
}

// WeekdayOf mapea un instante (en la zona horaria que ya traiga) a su etiqueta.
func WeekdayOf(t time.Time) Weekday {
	return weekdayTags[t.Weekday()]
}

func (d Weekday) Valid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

// AllDays en orden mon..sun.
func AllDays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

var dayOrder = map[Weekday]int{
	Monday: 0, Tuesday: 1, Wednesday: 2, Thursday: 3,
	Friday: 4, Saturday: 5, Sunday: 6,
}

// SortDays ordena in-place en el orden canónico mon..sun. Los writes pasan
// por acá para que el round-trip por cualquier store sea estable.
func SortDays(days []Weekday) {
	sort.Slice(days, func(i, j int) bool {
		return dayOrder[days[i]] < dayOrder[days[j]]
	})
}
