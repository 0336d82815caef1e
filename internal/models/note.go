package models

import "time"

// Note is an item on the user's checklist. Notes are listed by Order.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"note,omitempty"`
	Done      bool      `json:"done"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type NoteDraft struct {
	Title string `json:"title" validate:"required,max=200"`
	Body  string `json:"note" validate:"max=2000"`
}
