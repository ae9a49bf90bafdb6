package commerce

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Store and product ids become blob key segments, so they are limited to
// characters that cannot reach into another namespace.
var keySegment = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// RoleTenant is the role given to registered tenants.
const RoleTenant = "Tenant"

// StoreRef is the reference a tenant keeps to its store.
func StoreRef(storeID string) string {
	return "store#" + storeID
}

// Tenant is an account that may own one store.
type Tenant struct {
	ID           string `json:"id" dynamodbav:"id"`
	Username     string `json:"username" dynamodbav:"username"`
	Mail         string `json:"mail" dynamodbav:"mail"`
	PasswordHash string `json:"-" dynamodbav:"password_hash"`
	Role         string `json:"role" dynamodbav:"role"`
	StoreRef     string `json:"storeRef,omitempty" dynamodbav:"store_ref,omitempty"`
	StoreID      string `json:"storeId,omitempty" dynamodbav:"store_id,omitempty"`
	Version      int64  `json:"-" dynamodbav:"version,omitempty"`
}

// HasStore reports whether the tenant currently owns a store.
func (t *Tenant) HasStore() bool {
	return t.StoreRef != ""
}

// Theme holds a store's colors. Both are required.
type Theme struct {
	PrimaryColor   string `json:"primaryColor" dynamodbav:"primary_color"`
	SecondaryColor string `json:"secondaryColor" dynamodbav:"secondary_color"`
}

// Store is a tenant's storefront.
type Store struct {
	ID             string   `json:"storeId" dynamodbav:"id"`
	TenantID       string   `json:"tenantId" dynamodbav:"tenant_id"`
	Name           string   `json:"name" dynamodbav:"name"`
	Subdomain      string   `json:"subdomain" dynamodbav:"subdomain"`
	Description    string   `json:"description" dynamodbav:"description"`
	LogoKey        string   `json:"logoKey,omitempty" dynamodbav:"logo_key"`
	Theme          Theme    `json:"theme" dynamodbav:"theme"`
	Address        string   `json:"address" dynamodbav:"address"`
	Contact        string   `json:"contact" dynamodbav:"contact"`
	Mail           string   `json:"mail" dynamodbav:"mail"`
	ReturnPolicy   string   `json:"returnPolicy" dynamodbav:"return_policy"`
	ShippingPolicy string   `json:"shippingPolicy" dynamodbav:"shipping_policy"`
	ProductIDs     []string `json:"products" dynamodbav:"product_ids"`
	CreatedAt      string   `json:"createdAt,omitempty" dynamodbav:"created_at,omitempty"`
	UpdatedAt      string   `json:"updatedAt,omitempty" dynamodbav:"updated_at,omitempty"`
	Version        int64    `json:"-" dynamodbav:"version,omitempty"`
}

func (s *Store) validate() error {
	switch {
	case !keySegment.MatchString(s.ID):
		return BadRequest("storeId may only contain letters, digits, '-' and '_'")
	case s.Name == "":
		return BadRequest("name is required")
	case s.Subdomain == "":
		return BadRequest("subdomain is required")
	case s.Theme.PrimaryColor == "" || s.Theme.SecondaryColor == "":
		return BadRequest("theme requires primaryColor and secondaryColor")
	case s.Mail == "":
		return BadRequest("mail is required")
	}
	return nil
}

func (s *Store) removeProduct(id string) {
	out := s.ProductIDs[:0]
	for _, p := range s.ProductIDs {
		if p != id {
			out = append(out, p)
		}
	}
	s.ProductIDs = out
}

// Product is a sellable item of a store. Images are blob keys under the
// store's product prefix.
type Product struct {
	ID                string   `json:"id" dynamodbav:"id"`
	StoreID           string   `json:"store" dynamodbav:"store_id"`
	ProductID         string   `json:"productId" dynamodbav:"product_id"`
	Name              string   `json:"name" dynamodbav:"name"`
	Category          string   `json:"category" dynamodbav:"category"`
	Subcategory       string   `json:"subcategory" dynamodbav:"subcategory"`
	Price             float64  `json:"price" dynamodbav:"price"`
	SizeOptions       []string `json:"sizeOptions" dynamodbav:"size_options"`
	Colors            string   `json:"colors" dynamodbav:"colors"`
	Images            []string `json:"images" dynamodbav:"images"`
	Description       string   `json:"description" dynamodbav:"description"`
	QuantityAvailable int      `json:"quantityAvailable" dynamodbav:"quantity_available"`
	CreatedAt         string   `json:"createdAt,omitempty" dynamodbav:"created_at,omitempty"`
	UpdatedAt         string   `json:"updatedAt,omitempty" dynamodbav:"updated_at,omitempty"`
	Version           int64    `json:"-" dynamodbav:"version,omitempty"`
}

func (p *Product) validate() error {
	switch {
	case p.ProductID == "":
		return BadRequest("productId is required")
	case !keySegment.MatchString(p.ProductID):
		return BadRequest("productId may only contain letters, digits, '-' and '_'")
	case p.Name == "":
		return BadRequest("name is required")
	case p.Category == "":
		return BadRequest("category is required")
	}
	return nil
}

// SizeList accepts either a JSON array or a comma separated string.
type SizeList []string

func (l *SizeList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = splitSizes(s)
	return nil
}

func splitSizes(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// StoreView is a store as returned to clients, with a signed logo URL.
type StoreView struct {
	*Store
	LogoURL string `json:"logoUrl,omitempty"`
}

// ProductView is a product as returned to clients, with signed image URLs
// in the same order as Images.
type ProductView struct {
	*Product
	ImageURLs []string `json:"imageUrls"`
}
