package rooms

import (
	"encoding/json"
	"fmt"
	"os"
)

// Catalog is the static venue → hub → room hierarchy shipped with the
// dashboard. Loaded once, immutable for the process lifetime.
type Catalog []Venue

type Venue struct {
	Name string `json:"name"`
	Hubs []Hub  `json:"hubs"`
}

type Hub struct {
	Name1    string `json:"name1"`
	Name2    string `json:"name2"`
	HubRooms []Room `json:"hubRooms"`
}

type Room struct {
	SpaceID       string `json:"space_id"`
	SpaceFullName string `json:"space_full_name"`
	RoomNumber    string `json:"roomNumber"`
	Capacity      int    `json:"capacity"`
	Priority      int    `json:"priority"`
	Address       string `json:"address"`
}

// LoadCatalog reads the room catalog JSON from disk.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read room catalog: %w", err)
	}

	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse room catalog: %w", err)
	}

	return catalog, nil
}
