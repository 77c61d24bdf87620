package domain

// CartItem is the remote cart store's line item. The storefront holds
// a read-only cached copy; the remote store owns the data.
type CartItem struct {
	ID       int64 `json:"id"`
	Book     *Book `json:"book"`
	Quantity int   `json:"quantity"`
}

// LineAmount is unit price times quantity. A partially loaded item
// (missing book, non-positive quantity) counts as zero so a cart still
// renders a best-effort total.
func (i CartItem) LineAmount() float64 {
	if i.Book == nil || i.Book.Price < 0 || i.Quantity < 1 {
		return 0
	}
	return i.Book.Price * float64(i.Quantity)
}

// Cart is the cached copy of the remote cart. Totals are recomputed on
// every read, never cached across a mutation.
type Cart struct {
	Items []CartItem `json:"items"`
}

func (c Cart) Total() float64 {
	var sum float64
	for _, item := range c.Items {
		sum += item.LineAmount()
	}
	return sum
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
