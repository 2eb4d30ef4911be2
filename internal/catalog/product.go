package catalog

import "time"

type Product struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Image     string    `json:"image"`
	Price     float64   `json:"price"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}
