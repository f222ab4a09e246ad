package models

// City and Restaurant are read models mirrored from the content service; the
// engine resolves check-in inputs and city/tag aggregates against them but
// never writes them.
type City struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	Slug    string `gorm:"not null;uniqueIndex:ux_city_slug_country,priority:1" json:"slug"`
	Name    string `gorm:"not null" json:"name"`
	Country string `gorm:"not null;uniqueIndex:ux_city_slug_country,priority:2" json:"country"`
}

type Restaurant struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	Slug   string `gorm:"not null;uniqueIndex:ux_restaurant_slug_city,priority:1" json:"slug"`
	Name   string `gorm:"not null" json:"name"`
	CityID string `gorm:"not null;uniqueIndex:ux_restaurant_slug_city,priority:2" json:"city_id"`

	Timestamps

	City *City           `gorm:"foreignKey:CityID" json:"city,omitempty"`
	Tags []RestaurantTag `gorm:"foreignKey:RestaurantID" json:"tags,omitempty"`
}

// RestaurantTag is a plain join row (one tag per row) so the badge
// evaluator's tag aggregates stay portable SQL.
type RestaurantTag struct {
	RestaurantID string `gorm:"primaryKey" json:"restaurant_id"`
	Tag          string `gorm:"primaryKey;type:varchar(64)" json:"tag"`
}
