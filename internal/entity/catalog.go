package entity

import "sort"

// emailPattern is intentionally loose; real validation happens on delivery.
const emailPattern = `^[^@\s]+@[^@\s]+\.[^@\s]+$`

// catalog is the static entity table. Built once at init so a bad descriptor
// (duplicate column, invalid pattern) fails at startup, never per request.
var catalog = map[string]*Descriptor{}

func register(d *Descriptor) {
	if _, dup := catalog[d.Name]; dup {
		panic("entity registered twice: " + d.Name)
	}
	catalog[d.Name] = d
}

// Lookup resolves an entity name to its descriptor.
func Lookup(name string) (*Descriptor, bool) {
	d, ok := catalog[name]
	return d, ok
}

// Names returns all registered entity names, sorted.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	register(newDescriptor("user",
		Column{Name: "user_id", Kind: KindString},
		Column{Name: "username", Kind: KindString},
		Column{Name: "name", Kind: KindString, Required: true},
		Column{Name: "email", Kind: KindString, Required: true, Pattern: emailPattern},
		Column{Name: "password", Kind: KindString, Required: true, Sensitive: true},
		Column{Name: "contact_number", Kind: KindString},
		Column{Name: "is_active", Kind: KindBool},
		Column{Name: "is_verified", Kind: KindBool},
	))

	register(newDescriptor("address_book",
		Column{Name: "address_book_id", Kind: KindString},
		Column{Name: "user_id", Kind: KindString, Required: true},
		Column{Name: "address_line1", Kind: KindString, Required: true},
		Column{Name: "address_line2", Kind: KindString},
		Column{Name: "city", Kind: KindString, Required: true},
		Column{Name: "state", Kind: KindString},
		Column{Name: "postal_code", Kind: KindString, Required: true},
		Column{Name: "country", Kind: KindString, Required: true},
		Column{Name: "is_default", Kind: KindBool},
	))

	register(newDescriptor("brand",
		Column{Name: "brand_id", Kind: KindString},
		Column{Name: "name", Kind: KindString, Required: true},
		Column{Name: "slug", Kind: KindString, Required: true},
		Column{Name: "description", Kind: KindText},
	))

	// Categories self-reference through parent_category_id to form a tree.
	register(newDescriptor("category",
		Column{Name: "category_id", Kind: KindString},
		Column{Name: "name", Kind: KindString, Required: true},
		Column{Name: "slug", Kind: KindString, Required: true},
		Column{Name: "description", Kind: KindText},
		Column{Name: "parent_category_id", Kind: KindString},
	))

	register(newDescriptor("product",
		Column{Name: "product_id", Kind: KindString},
		Column{Name: "name", Kind: KindString, Required: true},
		Column{Name: "slug", Kind: KindString, Required: true},
		Column{Name: "description", Kind: KindText},
		Column{Name: "brand_id", Kind: KindString},
		Column{Name: "category_id", Kind: KindString},
		Column{Name: "price", Kind: KindFloat, Required: true},
		Column{Name: "discount_price", Kind: KindFloat},
		Column{Name: "sku", Kind: KindString},
		Column{Name: "is_active", Kind: KindBool},
	))

	register(newDescriptor("product_image",
		Column{Name: "product_image_id", Kind: KindString},
		Column{Name: "product_id", Kind: KindString, Required: true},
		Column{Name: "image_url", Kind: KindString, Required: true},
		Column{Name: "alt_text", Kind: KindString},
		Column{Name: "position", Kind: KindInt},
	))

	register(newDescriptor("product_inventory",
		Column{Name: "product_inventory_id", Kind: KindString},
		Column{Name: "product_id", Kind: KindString, Required: true},
		Column{Name: "quantity", Kind: KindInt, Required: true},
		Column{Name: "reserved_quantity", Kind: KindInt},
		Column{Name: "warehouse_location", Kind: KindString},
	))

	register(newDescriptor("cart",
		Column{Name: "cart_id", Kind: KindString},
		Column{Name: "user_id", Kind: KindString, Required: true},
		Column{Name: "is_active", Kind: KindBool},
	))

	register(newDescriptor("cart_item",
		Column{Name: "cart_item_id", Kind: KindString},
		Column{Name: "cart_id", Kind: KindString, Required: true},
		Column{Name: "product_id", Kind: KindString, Required: true},
		Column{Name: "quantity", Kind: KindInt, Required: true},
		Column{Name: "unit_price", Kind: KindFloat},
	))

	register(newDescriptor("order",
		Column{Name: "order_id", Kind: KindString},
		Column{Name: "user_id", Kind: KindString, Required: true},
		Column{Name: "order_number", Kind: KindString},
		Column{Name: "order_status", Kind: KindString, Required: true},
		Column{Name: "total_amount", Kind: KindFloat, Required: true},
		Column{Name: "shipping_address_id", Kind: KindString},
		Column{Name: "coupon_id", Kind: KindString},
	))

	register(newDescriptor("order_item",
		Column{Name: "order_item_id", Kind: KindString},
		Column{Name: "order_id", Kind: KindString, Required: true},
		Column{Name: "product_id", Kind: KindString, Required: true},
		Column{Name: "quantity", Kind: KindInt, Required: true},
		Column{Name: "unit_price", Kind: KindFloat, Required: true},
		Column{Name: "discount_amount", Kind: KindFloat},
	))

	register(newDescriptor("payment",
		Column{Name: "payment_id", Kind: KindString},
		Column{Name: "order_id", Kind: KindString, Required: true},
		Column{Name: "payment_method", Kind: KindString, Required: true},
		Column{Name: "payment_status", Kind: KindString, Required: true},
		Column{Name: "amount", Kind: KindFloat, Required: true},
		Column{Name: "transaction_reference", Kind: KindString},
	))

	register(newDescriptor("shipping",
		Column{Name: "shipping_id", Kind: KindString},
		Column{Name: "order_id", Kind: KindString, Required: true},
		Column{Name: "carrier", Kind: KindString},
		Column{Name: "tracking_number", Kind: KindString},
		Column{Name: "shipping_status", Kind: KindString},
		Column{Name: "shipped_at", Kind: KindTime},
		Column{Name: "delivered_at", Kind: KindTime},
	))

	register(newDescriptor("coupon",
		Column{Name: "coupon_id", Kind: KindString},
		Column{Name: "code", Kind: KindString, Required: true},
		Column{Name: "discount_type", Kind: KindString, Required: true},
		Column{Name: "discount_value", Kind: KindFloat, Required: true},
		Column{Name: "min_order_amount", Kind: KindFloat},
		Column{Name: "valid_from", Kind: KindTime},
		Column{Name: "valid_till", Kind: KindTime},
		Column{Name: "usage_limit", Kind: KindInt},
		Column{Name: "is_active", Kind: KindBool},
	))

	register(newDescriptor("review",
		Column{Name: "review_id", Kind: KindString},
		Column{Name: "product_id", Kind: KindString, Required: true},
		Column{Name: "user_id", Kind: KindString, Required: true},
		Column{Name: "rating", Kind: KindInt, Required: true},
		Column{Name: "title", Kind: KindString},
		Column{Name: "comment", Kind: KindText},
	))

	register(newDescriptor("audit_log",
		Column{Name: "audit_log_id", Kind: KindString},
		Column{Name: "user_id", Kind: KindString},
		Column{Name: "entity_name", Kind: KindString, Required: true},
		Column{Name: "entity_id", Kind: KindString, Required: true},
		Column{Name: "action", Kind: KindString, Required: true},
		Column{Name: "details", Kind: KindJSON},
	))
}
