package entities

import "time"

// Review is a customer rating of a listing. Hidden reviews are kept but are
// excluded from display and from the aggregate rating.
type Review struct {
	ID         string    `json:"id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	AuthorName string    `json:"author_name"`
	Date       time.Time `json:"date"`
	Hidden     bool      `json:"hidden"`
}
