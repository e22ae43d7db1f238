package dto

// OwnerBreakdownRequest selects owners and the grouping period. The owner
// list is saved as the caller's selection.
type OwnerBreakdownRequest struct {
	Owners []string `json:"owners"`
	Period string   `json:"period"`
	Order  string   `json:"order"`
}

// OwnersResponse lists known owners with the caller's saved selection.
type OwnersResponse struct {
	Owners   []string `json:"owners"`
	Selected []string `json:"selected_owners"`
}

// ListResponse wraps drill-down lists with their size.
type ListResponse[T any] struct {
	Count int `json:"count"`
	Items []T `json:"items"`
}

// NewListResponse wraps items, never rendering null.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Count: len(items), Items: items}
}
