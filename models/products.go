package models

import "time"

// Product represents a product in the inventory.
// Code is entered by the user and is not guaranteed to be unique. Image is
// the locator of the stored picture, empty when there is none.
type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Code        int       `gorm:"index;not null" json:"code"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Image       string    `gorm:"size:1024" json:"image"`
	Quantity    int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (p *Product) TableName() string {
	return "products"
}

// Tables lists the models migrated at startup.
var Tables = []any{
	&Product{},
}
