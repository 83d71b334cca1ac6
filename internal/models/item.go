package models

import "time"

// Item is a user-entered record persisted in data_items.
type Item struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ItemInput is the body accepted by create and update. Fields stay untyped so a
// non-string value reaches validation instead of failing to decode.
type ItemInput struct {
	Name        any `json:"name"`
	Description any `json:"description"`
}
