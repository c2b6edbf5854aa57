package models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Name            string         `json:"name"`
	Email           string         `json:"email" gorm:"uniqueIndex"`
	Password        string         `json:"-"`
	PhoneNumber     string         `json:"phoneNumber"`
	AvatarURL       string         `json:"avatarURL"`
	Role            string         `json:"role" gorm:"type:varchar(20);default:user;index"` // user, owner, admin
	BudgetMin       int            `json:"budgetMin"`
	BudgetMax       int            `json:"budgetMax"`
	PreferredCities datatypes.JSON `json:"preferredCities"`
	PreferredType   string         `json:"preferredType"` // hostel, pg, budget-hotel, co-living
	SavedProperties datatypes.JSON `json:"savedProperties"`
	Properties      []Property     `json:"properties,omitempty" gorm:"foreignKey:OwnerID;references:ID"`
}

// Custom JSON marshaling so the JSON columns come out as real arrays
func (u *User) MarshalJSON() ([]byte, error) {
	type Alias User
	aux := &struct {
		PreferredCities []string `json:"preferredCities"`
		SavedProperties []uint   `json:"savedProperties"`
		*Alias
	}{
		PreferredCities: []string{},
		SavedProperties: []uint{},
		Alias:           (*Alias)(u),
	}

	if u.PreferredCities != nil {
		var cities []string
		if err := json.Unmarshal(u.PreferredCities, &cities); err == nil {
			aux.PreferredCities = cities
		}
	}

	if u.SavedProperties != nil {
		var saved []uint
		if err := json.Unmarshal(u.SavedProperties, &saved); err == nil {
			aux.SavedProperties = saved
		}
	}

	return json.Marshal(aux)
}
