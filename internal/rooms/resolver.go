package rooms

import (
	"fmt"
	"strconv"
)

// VenueMinquan and VenueTaipower are the two venue slugs the dashboard knows.
const (
	VenueMinquan  = "minquan"
	VenueTaipower = "taipower"
)

// Info is the resolved display data for one room id.
type Info struct {
	Name       string `json:"name"`
	Venue      string `json:"venue"`
	RoomNumber string `json:"room_number"`
	HubName    string `json:"hub_name"`
}

// Resolver maps a numeric room id to its display info in O(1). Built once
// from the catalog and never mutated afterwards.
type Resolver struct {
	byID         map[string]Info
	defaultVenue string
}

// NewResolver indexes the catalog. defaultVenue is used for unknown ids.
func NewResolver(catalog Catalog, defaultVenue string) *Resolver {
	if defaultVenue == "" {
		defaultVenue = VenueMinquan
	}

	byID := make(map[string]Info)
	for _, venue := range catalog {
		slug := VenueTaipower
		if venue.Name == "民權" {
			slug = VenueMinquan
		}
		for _, hub := range venue.Hubs {
			hubName := hub.Name2
			if hubName == "" {
				hubName = hub.Name1
			}
			for _, room := range hub.HubRooms {
				byID[room.SpaceID] = Info{
					Name:       room.SpaceFullName,
					Venue:      slug,
					RoomNumber: room.RoomNumber,
					HubName:    hubName,
				}
			}
		}
	}

	return &Resolver{byID: byID, defaultVenue: defaultVenue}
}

// Resolve never fails: unknown ids get a synthetic name and the default
// venue so the mapper stays total.
func (r *Resolver) Resolve(roomID int64) Info {
	id := strconv.FormatInt(roomID, 10)
	if info, ok := r.byID[id]; ok {
		return info
	}

	return Info{
		Name:       fmt.Sprintf("房間 %d", roomID),
		Venue:      r.defaultVenue,
		RoomNumber: id,
	}
}

// Len returns the number of indexed rooms.
func (r *Resolver) Len() int {
	return len(r.byID)
}
