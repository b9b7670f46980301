package dto

import "github.com/khainghsuthwe/ReserveMyTable/internal/domain"

// ResizeRequest represents an owner change to the number of tables of a type
type ResizeRequest struct {
	Delta int `json:"delta"`
}

// TableCountResponse is one table type with its derived reserved count
type TableCountResponse struct {
	Type      string `json:"type"`
	Capacity  int    `json:"capacity"`
	Available int    `json:"available"`
	Reserved  int    `json:"reserved"`
}

// SlotResponse represents a time slot with aggregates derived from its tables
type SlotResponse struct {
	SlotID    string               `json:"slot_id"`
	Date      string               `json:"date"`
	Time      string               `json:"time"`
	Capacity  int                  `json:"capacity"`
	Available int                  `json:"available"`
	Reserved  int                  `json:"reserved"`
	Tables    []TableCountResponse `json:"tables"`
}

// DayResponse is the availability record of one restaurant on one date
type DayResponse struct {
	RestaurantID string          `json:"restaurant_id"`
	Date         string          `json:"date"`
	Slots        []*SlotResponse `json:"slots"`
}

// FromSlot converts domain TimeSlot to SlotResponse
func FromSlot(s *domain.TimeSlot) *SlotResponse {
	resp := &SlotResponse{
		SlotID:    s.SlotID,
		Date:      s.Date,
		Time:      s.Time,
		Capacity:  s.Capacity(),
		Available: s.Available(),
		Reserved:  s.Reserved(),
		Tables:    make([]TableCountResponse, len(s.Tables)),
	}
	for i, tc := range s.Tables {
		resp.Tables[i] = TableCountResponse{
			Type:      tc.Type,
			Capacity:  tc.Capacity,
			Available: tc.Available,
			Reserved:  tc.Reserved(),
		}
	}
	return resp
}

// FromDay converts the slots of one day
func FromDay(restaurantID, date string, slots []*domain.TimeSlot) *DayResponse {
	resp := &DayResponse{RestaurantID: restaurantID, Date: date, Slots: make([]*SlotResponse, len(slots))}
	for i, s := range slots {
		resp.Slots[i] = FromSlot(s)
	}
	return resp
}
