package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ComplaintStatusOpen       = "open"
	ComplaintStatusInProgress = "in-progress"
	ComplaintStatusResolved   = "resolved"
	ComplaintStatusClosed     = "closed"
)

// ComplaintClassification is the advisory AI snapshot taken at creation.
// It never drives the complaint's own category/priority on its own.
type ComplaintClassification struct {
	SuggestedCategory string  `json:"suggestedCategory" gorm:"type:varchar(20)"`
	SuggestedPriority string  `json:"suggestedPriority" gorm:"type:varchar(10)"`
	SentimentScore    float64 `json:"sentimentScore"`
	Confidence        float64 `json:"confidence"`
}

type ComplaintResolution struct {
	Text       string     `json:"text" gorm:"type:text"`
	ResolvedBy *uint      `json:"resolvedBy"`
	ResolvedAt *time.Time `json:"resolvedAt"`
}

type Complaint struct {
	gorm.Model
	UserID     uint `json:"userID" gorm:"not null;index"`
	PropertyID uint `json:"propertyID" gorm:"not null;index"`

	Title       string `json:"title" gorm:"type:varchar(150);not null"`
	Description string `json:"description" gorm:"type:text;not null"`
	Category    string `json:"category" gorm:"type:varchar(20);default:other"`  // maintenance, cleanliness, noise, security, billing, staff, food, other
	Priority    string `json:"priority" gorm:"type:varchar(10);default:medium"` // low, medium, high, urgent
	Status      string `json:"status" gorm:"type:varchar(15);default:open;index"`

	AIClassification ComplaintClassification `json:"aiClassification" gorm:"embedded;embeddedPrefix:ai_"`
	Resolution       ComplaintResolution     `json:"resolution" gorm:"embedded;embeddedPrefix:resolution_"`
	Images           datatypes.JSON          `json:"images"`

	User     User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Property Property `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
}

func (c *Complaint) MarshalJSON() ([]byte, error) {
	type Alias Complaint
	aux := &struct {
		Images []string `json:"images"`
		*Alias
	}{
		Images: []string{},
		Alias:  (*Alias)(c),
	}
	if c.Images != nil {
		var images []string
		if err := json.Unmarshal(c.Images, &images); err == nil {
			aux.Images = images
		}
	}
	return json.Marshal(aux)
}
