package models

import "gorm.io/gorm"

type Review struct {
	gorm.Model
	UserID     uint `json:"userID" gorm:"not null;index;uniqueIndex:idx_review_user_property"`
	PropertyID uint `json:"propertyID" gorm:"not null;index;uniqueIndex:idx_review_user_property"`

	Rating int    `json:"rating" gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Title  string `json:"title" gorm:"type:varchar(100)"`
	Body   string `json:"body" gorm:"type:text;not null"`

	SentimentScore float64 `json:"sentimentScore" gorm:"default:0"`                        // -1 to 1
	SentimentLabel string  `json:"sentimentLabel" gorm:"type:varchar(10);default:neutral"` // positive, negative, neutral

	Flagged    bool   `json:"flagged" gorm:"default:false;index"`
	FlagReason string `json:"flagReason" gorm:"type:text"`
	Helpful    int    `json:"helpful" gorm:"default:0"`

	User     User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Property Property `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
}
