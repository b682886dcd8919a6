package domain

type UnitStatus string

const (
	UnitFree        UnitStatus = "free"
	UnitOccupied    UnitStatus = "occupied"
	UnitCleaning    UnitStatus = "cleaning"
	UnitReserved    UnitStatus = "reserved"
	UnitMaintenance UnitStatus = "maintenance"
)

// UnitStatuses lists every unit status in display order.
var UnitStatuses = []UnitStatus{UnitFree, UnitOccupied, UnitCleaning, UnitReserved, UnitMaintenance}

func (s UnitStatus) Valid() bool {
	switch s {
	case UnitFree, UnitOccupied, UnitCleaning, UnitReserved, UnitMaintenance:
		return true
	}
	return false
}

// Category is a bookable room type. Subtitle is the label transactions refer to.
type Category struct {
	ID       string
	Title    string
	Subtitle string
	Price    float64
	Features []string
	Images   []string
	Reverse  bool       // layout flag for the listing page
	Status   UnitStatus // stored fallback when units give no strong signal
}

// RoomUnit is one physical room of a Category.
type RoomUnit struct {
	ID         int64
	CategoryID string
	Label      string
	Status     UnitStatus
}

// CategoryView is the read-time projection of a category and its units.
type CategoryView struct {
	ID       string             `json:"id"`
	Title    string             `json:"title"`
	Subtitle string             `json:"subtitle"`
	Price    float64            `json:"price"`
	Features []string           `json:"features"`
	Images   []string           `json:"images"`
	Reverse  bool               `json:"reverse"`
	Total    int                `json:"total"`
	Counts   map[UnitStatus]int `json:"counts"`
	Status   UnitStatus         `json:"status"`
}
