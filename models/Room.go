package models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Room struct {
	gorm.Model
	PropertyID       uint           `json:"propertyID" gorm:"not null;index"`
	Name             string         `json:"name" gorm:"not null"`
	Type             string         `json:"type" gorm:"type:varchar(20)"` // single, double, triple, dormitory, deluxe, suite
	DailyPrice       float64        `json:"dailyPrice" gorm:"not null"`
	WeeklyPrice      float64        `json:"weeklyPrice"`
	MonthlyPrice     float64        `json:"monthlyPrice"`
	Capacity         int            `json:"capacity"`
	TotalBeds        int            `json:"totalBeds" gorm:"not null"`
	AvailableBeds    int            `json:"availableBeds" gorm:"not null"` // mutated only via conditional updates in the booking ledger and room routes
	Amenities        datatypes.JSON `json:"amenities"`
	Images           datatypes.JSON `json:"images"`
	AC               bool           `json:"ac" gorm:"default:false"`
	AttachedBathroom bool           `json:"attachedBathroom" gorm:"default:false"`
	Active           *bool          `json:"active" gorm:"default:true"`

	Property Property `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
}

func (r *Room) MarshalJSON() ([]byte, error) {
	type Alias Room
	aux := &struct {
		Amenities []string  `json:"amenities"`
		Images    []string  `json:"images"`
		Property  *Property `json:"property,omitempty"`
		*Alias
	}{
		Amenities: []string{},
		Images:    []string{},
		Alias:     (*Alias)(r),
	}

	if r.Amenities != nil {
		var amenities []string
		if err := json.Unmarshal(r.Amenities, &amenities); err == nil {
			aux.Amenities = amenities
		}
	}
	if r.Images != nil {
		var images []string
		if err := json.Unmarshal(r.Images, &images); err == nil {
			aux.Images = images
		}
	}
	if r.Property.ID > 0 {
		propCopy := r.Property
		propCopy.Rooms = nil
		aux.Property = &propCopy
	}

	return json.Marshal(aux)
}
