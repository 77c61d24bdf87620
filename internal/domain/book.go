package domain

// Book as served by the remote catalog. The storefront never mutates
// books, it only displays them.
type Book struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl,omitempty"`
}

type Review struct {
	ID      int64  `json:"id,omitempty"`
	BookID  int64  `json:"bookId"`
	UserID  int64  `json:"userId"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}
