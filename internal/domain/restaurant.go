package domain

// Restaurant is immutable reference data for a dining venue
type Restaurant struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Location     string      `json:"location"`
	Hours        string      `json:"hours"`
	Cuisine      string      `json:"cuisine,omitempty"`
	Image        string      `json:"image"`
	DiningPhotos []string    `json:"dining_photos"`
	TableTypes   []TableType `json:"table_types"`
	Menu         []MenuItem  `json:"menu"`
}

// TableType describes a kind of table a restaurant offers
type TableType struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	// Seats is the largest party the table seats; 0 means no limit
	Seats int `json:"seats,omitempty"`
}

// MenuItem is a dish on the restaurant menu
type MenuItem struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
}

// TableType returns the table type named t
func (r *Restaurant) TableType(t string) (TableType, bool) {
	for _, tt := range r.TableTypes {
		if tt.Type == t {
			return tt, true
		}
	}
	return TableType{}, false
}

// Admits reports whether a party of the given size fits this table type
func (t TableType) Admits(partySize int) bool {
	return t.Seats <= 0 || partySize <= t.Seats
}
