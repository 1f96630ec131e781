package catalog

// Tag marks a product for a storefront shelf.
type Tag string

const (
	TagBestSeller Tag = "best-seller"
	TagNew        Tag = "new"
	TagSale       Tag = "sale"
)

// Product is a storefront catalog entry. Prices are minor units (JPY).
type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	ImageURL    string `json:"imageUrl"`
	Category    string `json:"category"`
	Tags        []Tag  `json:"tags,omitempty"`
}

// HasTag reports whether the product carries the given tag.
func (p Product) HasTag(tag Tag) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// seedProducts is the demo catalog. The storefront is a fixed assortment;
// there is no product administration surface.
func seedProducts() []Product {
	placeholder := "https://placehold.co/150x150"
	return []Product{
		{ID: 1, Name: "Product 1", Description: "Description of Product 1", Price: 100, ImageURL: placeholder, Category: "Clothing", Tags: []Tag{TagBestSeller}},
		{ID: 2, Name: "Product 2", Description: "Description of Product 2", Price: 200, ImageURL: placeholder, Category: "Clothing", Tags: []Tag{TagBestSeller, TagSale}},
		{ID: 3, Name: "Product 3", Description: "Description of Product 3", Price: 300, ImageURL: placeholder, Category: "Electronics", Tags: []Tag{TagNew}},
		{ID: 4, Name: "Product 4", Description: "Description of Product 4", Price: 700, ImageURL: placeholder, Category: "Electronics"},
		{ID: 5, Name: "Product 5", Description: "Description of Product 5", Price: 650, ImageURL: placeholder, Category: "Clothing", Tags: []Tag{TagBestSeller}},
		{ID: 6, Name: "Product 6", Description: "Description of Product 6", Price: 450, ImageURL: placeholder, Category: "Accessories"},
		{ID: 7, Name: "Product 7", Description: "Description of Product 7", Price: 200, ImageURL: placeholder, Category: "Accessories", Tags: []Tag{TagNew}},
		{ID: 8, Name: "Product 8", Description: "Description of Product 8", Price: 800, ImageURL: placeholder, Category: "Electronics", Tags: []Tag{TagSale}},
		{ID: 9, Name: "Product 9", Description: "Description of Product 9", Price: 900, ImageURL: placeholder, Category: "Electronics"},
		{ID: 10, Name: "Product 10", Description: "Description of Product 10", Price: 1000, ImageURL: placeholder, Category: "Clothing", Tags: []Tag{TagBestSeller}},
		{ID: 11, Name: "Product 11", Description: "Description of Product 11", Price: 1100, ImageURL: placeholder, Category: "Accessories", Tags: []Tag{TagSale}},
		{ID: 12, Name: "Product 12", Description: "Description of Product 12", Price: 1200, ImageURL: placeholder, Category: "Accessories"},
		{ID: 13, Name: "Product 13", Description: "Description of Product 13", Price: 1300, ImageURL: placeholder, Category: "Clothing", Tags: []Tag{TagNew}},
		{ID: 14, Name: "Product 14", Description: "Description of Product 14", Price: 1400, ImageURL: placeholder, Category: "Clothing"},
	}
}
