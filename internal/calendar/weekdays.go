package calendar

// defaultWeekdayMask is Monday through Friday.
const defaultWeekdayMask = 31 // 0b0011111

// Weekdays is the pretty boolean form of the availability bitmask stored on
// a calendar. Bit 0 is Monday, bit 6 is Sunday.
type Weekdays struct {
	Monday    bool `json:"monday"`
	Tuesday   bool `json:"tuesday"`
	Wednesday bool `json:"wednesday"`
	Thursday  bool `json:"thursday"`
	Friday    bool `json:"friday"`
	Saturday  bool `json:"saturday"`
	Sunday    bool `json:"sunday"`
}

// WeekdaysFromMask expands a stored bitmask into the pretty form.
func WeekdaysFromMask(mask int) Weekdays {
	return Weekdays{
		Monday:    mask&(1<<0) != 0,
		Tuesday:   mask&(1<<1) != 0,
		Wednesday: mask&(1<<2) != 0,
		Thursday:  mask&(1<<3) != 0,
		Friday:    mask&(1<<4) != 0,
		Saturday:  mask&(1<<5) != 0,
		Sunday:    mask&(1<<6) != 0,
	}
}

// Mask collapses the pretty form back into the stored bitmask.
func (w Weekdays) Mask() int {
	mask := 0
	for i, set := range [7]bool{w.Monday, w.Tuesday, w.Wednesday, w.Thursday, w.Friday, w.Saturday, w.Sunday} {
		if set {
			mask |= 1 << i
		}
	}
	return mask
}
