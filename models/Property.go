package models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Property struct {
	gorm.Model
	OwnerID         uint           `json:"ownerID" gorm:"not null;index"`
	Name            string         `json:"name" gorm:"not null"`
	Slug            string         `json:"slug" gorm:"uniqueIndex"`
	Description     string         `json:"description" gorm:"type:text"`
	Type            string         `json:"type" gorm:"type:varchar(20);index"`               // hostel, pg, budget-hotel, co-living
	Gender          string         `json:"gender" gorm:"type:varchar(10);default:coed"`      // male, female, coed
	Address         string         `json:"address"`
	City            string         `json:"city" gorm:"index"`
	State           string         `json:"state"`
	Pincode         string         `json:"pincode"`
	Lat             float64        `json:"lat"`
	Lng             float64        `json:"lng"`
	NearbyPlaces    datatypes.JSON `json:"nearbyPlaces"`
	Amenities       datatypes.JSON `json:"amenities"`
	Rules           datatypes.JSON `json:"rules"`
	Images          datatypes.JSON `json:"images"`
	StartingFrom    float64        `json:"startingFrom"`
	SecurityDeposit float64        `json:"securityDeposit"`

	// Derived aggregates. AvgRating/TotalReviews are recomputed from
	// non-flagged reviews, TotalRooms/AvailableRooms from child rooms,
	// always inside the transaction that triggered the change.
	AvgRating      float64 `json:"avgRating" gorm:"default:0"`
	TotalReviews   int     `json:"totalReviews" gorm:"default:0"`
	TotalRooms     int     `json:"totalRooms" gorm:"default:0"`
	AvailableRooms int     `json:"availableRooms" gorm:"default:0"`

	IsVerified *bool `json:"isVerified" gorm:"default:false"`
	IsActive   *bool `json:"isActive" gorm:"default:true"`

	Owner   User     `json:"owner,omitempty" gorm:"foreignKey:OwnerID;references:ID"`
	Rooms   []Room   `json:"rooms,omitempty"`
	Reviews []Review `json:"reviews,omitempty"`
}

func (p *Property) MarshalJSON() ([]byte, error) {
	type Alias Property
	aux := &struct {
		NearbyPlaces []string `json:"nearbyPlaces"`
		Amenities    []string `json:"amenities"`
		Rules        []string `json:"rules"`
		Images       []string `json:"images"`
		Owner        *User    `json:"owner,omitempty"`
		*Alias
	}{
		NearbyPlaces: []string{},
		Amenities:    []string{},
		Rules:        []string{},
		Images:       []string{},
		Alias:        (*Alias)(p),
	}

	unpack := func(raw datatypes.JSON, dst *[]string) {
		if raw == nil {
			return
		}
		var out []string
		if err := json.Unmarshal(raw, &out); err == nil {
			*dst = out
		}
	}
	unpack(p.NearbyPlaces, &aux.NearbyPlaces)
	unpack(p.Amenities, &aux.Amenities)
	unpack(p.Rules, &aux.Rules)
	unpack(p.Images, &aux.Images)

	// Avoid the circular owner -> properties -> owner reference
	if p.Owner.ID > 0 {
		ownerCopy := p.Owner
		ownerCopy.Properties = nil
		aux.Owner = &ownerCopy
	}

	return json.Marshal(aux)
}
