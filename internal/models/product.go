package models

// Product is an immutable catalog entry. The catalog is loaded once at
// process start and products are never mutated afterwards.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Rating      float64  `json:"rating"`
	Reviews     int      `json:"reviews"`
	ImageURL    string   `json:"image_url"`
	Tags        []string `json:"tags"`
	IsNew       bool     `json:"is_new,omitempty"`
	Discount    int      `json:"discount,omitempty"` // percentage, 0-100
	Pros        []string `json:"pros"`
	Cons        []string `json:"cons"`
	ARModelURL  string   `json:"ar_model_url,omitempty"` // GLB asset for the 3D viewer
}

type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}
