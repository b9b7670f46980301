package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	// DateLayout is the calendar date format used in slot keys
	DateLayout = "2006-01-02"
	// TimeLayout is the time-of-day format of a slot
	TimeLayout = "15:04"
)

// SlotKey identifies one time slot of one restaurant on one date
type SlotKey struct {
	RestaurantID string `json:"restaurant_id"`
	Date         string `json:"date"`
	SlotID       string `json:"slot_id"`
}

// Validate checks that every component is present and the date parses
func (k SlotKey) Validate() error {
	if strings.TrimSpace(k.RestaurantID) == "" {
		return ErrInvalidRestaurantID
	}
	if err := ValidateDate(k.Date); err != nil {
		return err
	}
	if strings.TrimSpace(k.SlotID) == "" {
		return ErrInvalidSlotID
	}
	return nil
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.RestaurantID, k.Date, k.SlotID)
}

// ValidateDate checks a YYYY-MM-DD calendar date
func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// ValidateTime checks an HH:MM time of day
func ValidateTime(t string) error {
	if _, err := time.Parse(TimeLayout, t); err != nil {
		return ErrInvalidTime
	}
	return nil
}

// TableCount holds the counters of one table type within a slot.
// Reserved is derived as Capacity - Available.
type TableCount struct {
	Type      string `json:"type"`
	Capacity  int    `json:"capacity"`
	Available int    `json:"available"`
}

// Reserved returns the number of tables of this type currently held
func (t TableCount) Reserved() int {
	return t.Capacity - t.Available
}

// Valid reports whether 0 <= available <= capacity
func (t TableCount) Valid() bool {
	return t.Available >= 0 && t.Available <= t.Capacity
}

// TimeSlot is one bookable time on a date with per table type counters
type TimeSlot struct {
	SlotKey
	Time   string       `json:"time"`
	Tables []TableCount `json:"tables"`
}

// Table returns the counters for table type t
func (s *TimeSlot) Table(t string) (TableCount, bool) {
	for _, tc := range s.Tables {
		if tc.Type == t {
			return tc, true
		}
	}
	return TableCount{}, false
}

// Capacity is the total number of tables in the slot
func (s *TimeSlot) Capacity() int {
	n := 0
	for _, tc := range s.Tables {
		n += tc.Capacity
	}
	return n
}

// Available is the number of free tables across all types
func (s *TimeSlot) Available() int {
	n := 0
	for _, tc := range s.Tables {
		n += tc.Available
	}
	return n
}

// Reserved is the number of held tables across all types
func (s *TimeSlot) Reserved() int {
	return s.Capacity() - s.Available()
}

// Clone returns a deep copy
func (s *TimeSlot) Clone() *TimeSlot {
	c := *s
	c.Tables = append([]TableCount(nil), s.Tables...)
	return &c
}

// SortTables orders table counters by type name
func (s *TimeSlot) SortTables() {
	sort.Slice(s.Tables, func(i, j int) bool { return s.Tables[i].Type < s.Tables[j].Type })
}

// SortSlots orders slots by time of day, then slot id
func SortSlots(slots []*TimeSlot) {
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Time != slots[j].Time {
			return slots[i].Time < slots[j].Time
		}
		return slots[i].SlotID < slots[j].SlotID
	})
}
