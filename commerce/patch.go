package commerce

import (
	"strings"

	"github.com/jacentio/storefront/blob"
)

// NewStore is the input for creating a store.
type NewStore struct {
	StoreID        string       `json:"storeId"`
	Name           string       `json:"name"`
	Subdomain      string       `json:"subdomain"`
	Description    string       `json:"description"`
	Theme          Theme        `json:"theme"`
	Address        string       `json:"address"`
	Contact        string       `json:"contact"`
	Mail           string       `json:"mail"`
	ReturnPolicy   string       `json:"returnPolicy"`
	ShippingPolicy string       `json:"shippingPolicy"`
	Logo           *blob.Object `json:"-"`
}

// ThemePatch changes individual theme colors.
type ThemePatch struct {
	PrimaryColor   *string `json:"primaryColor"`
	SecondaryColor *string `json:"secondaryColor"`
}

// StorePatch changes a store. Nil fields keep their current value; empty
// strings are applied as given. A non-nil Logo replaces the current logo.
type StorePatch struct {
	Name           *string      `json:"name"`
	Subdomain      *string      `json:"subdomain"`
	Description    *string      `json:"description"`
	Theme          *ThemePatch  `json:"theme"`
	Address        *string      `json:"address"`
	Contact        *string      `json:"contact"`
	Mail           *string      `json:"mail"`
	ReturnPolicy   *string      `json:"returnPolicy"`
	ShippingPolicy *string      `json:"shippingPolicy"`
	Logo           *blob.Object `json:"-"`
}

func (p StorePatch) apply(s *Store, suffix string) {
	set(&s.Name, p.Name)
	if p.Subdomain != nil {
		s.Subdomain = withSuffix(*p.Subdomain, suffix)
	}
	set(&s.Description, p.Description)
	if p.Theme != nil {
		set(&s.Theme.PrimaryColor, p.Theme.PrimaryColor)
		set(&s.Theme.SecondaryColor, p.Theme.SecondaryColor)
	}
	set(&s.Address, p.Address)
	set(&s.Contact, p.Contact)
	set(&s.Mail, p.Mail)
	set(&s.ReturnPolicy, p.ReturnPolicy)
	set(&s.ShippingPolicy, p.ShippingPolicy)
}

// NewProduct is the input for adding a product.
type NewProduct struct {
	ProductID         string        `json:"productId"`
	Name              string        `json:"name"`
	Category          string        `json:"category"`
	Subcategory       string        `json:"subcategory"`
	Price             float64       `json:"price"`
	SizeOptions       SizeList      `json:"sizeOptions"`
	Colors            string        `json:"colors"`
	Description       string        `json:"description"`
	QuantityAvailable int           `json:"quantityAvailable"`
	Images            []blob.Object `json:"-"`
}

// ProductPatch changes a product. Nil fields keep their current value.
// Non-empty Images replace the current images wholesale.
type ProductPatch struct {
	Name              *string       `json:"name"`
	Category          *string       `json:"category"`
	Subcategory       *string       `json:"subcategory"`
	Price             *float64      `json:"price"`
	SizeOptions       *SizeList     `json:"sizeOptions"`
	Colors            *string       `json:"colors"`
	Description       *string       `json:"description"`
	QuantityAvailable *int          `json:"quantityAvailable"`
	Images            []blob.Object `json:"-"`
}

func (p ProductPatch) apply(prod *Product) {
	set(&prod.Name, p.Name)
	set(&prod.Category, p.Category)
	set(&prod.Subcategory, p.Subcategory)
	set(&prod.Price, p.Price)
	if p.SizeOptions != nil {
		prod.SizeOptions = []string(*p.SizeOptions)
	}
	set(&prod.Colors, p.Colors)
	set(&prod.Description, p.Description)
	set(&prod.QuantityAvailable, p.QuantityAvailable)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func withSuffix(subdomain, suffix string) string {
	if subdomain == "" || strings.HasSuffix(subdomain, suffix) {
		return subdomain
	}
	return subdomain + suffix
}
