// Package catalog declares the entity types of the food-ordering back
// office. Definitions are data; the listing package runs them.
package catalog

import (
	"backoffice/internal/attachments"
	"backoffice/internal/filter"
	"backoffice/internal/lifecycle"
	"backoffice/internal/listing"
)

var (
	orderStatuses       = keys(OrderStatusLabel, "pending", "processing", "confirmed", "shipped", "delivered", "cancelled")
	paymentMethods      = keys(PaymentMethodLabel, "cash", "card", "transfer", "wallet")
	applicationStatuses = keys(ApplicationStatusLabel, "pending", "approved", "rejected")
	experienceLevels    = keys(ExperienceLabel, "none", "beginner", "intermediate", "expert")
	commentStatuses     = keys(CommentStatusLabel, "pending", "approved", "rejected")
	categories          = keys(CategoryLabel, "starters", "mains", "sides", "desserts", "drinks")

	imageExts = []string{".jpg", ".jpeg", ".png", ".webp"}
)

const (
	maxImageBytes  = 2 << 20
	maxResumeBytes = 5 << 20
)

// Definitions returns fresh definitions of every entity type. The registry
// completes them in place, so each registry needs its own set.
func Definitions() []*listing.Definition {
	return []*listing.Definition{
		Orders(),
		MenuItems(),
		Ambassadors(),
		BlogComments(),
		Testimonials(),
	}
}

func Orders() *listing.Definition {
	return &listing.Definition{
		Name:     "orders",
		Title:    "order",
		Table:    "orders",
		PageSize: 10,
		Columns: []string{"order_number", "customer_name", "customer_email", "customer_phone",
			"delivery_address", "payment_method", "status", "total_amount", "notes", "created_at", "updated_at"},
		Filters: filter.MustSpec("orders", "orders", []filter.FilterField{
			{Key: "q", Kind: filter.Substring, Columns: []string{"order_number", "customer_name", "customer_email", "customer_phone"}},
			{Key: "status", Kind: filter.Exact, Columns: []string{"status"}, AllowedValues: orderStatuses},
			{Key: "payment_method", Kind: filter.SetMembership, Columns: []string{"payment_method"}, AllowedValues: paymentMethods},
			{Key: "created", Kind: filter.Range, Columns: []string{"created_at"}, Type: filter.Date},
			{Key: "total", Kind: filter.Range, Columns: []string{"total_amount"}, Type: filter.Float},
		}, filter.WithSorts("-created_at",
			filter.SortField{Key: "created_at", Column: "created_at"},
			filter.SortField{Key: "total", Column: "total_amount"},
			filter.SortField{Key: "customer", Column: "customer_name"},
		)),
		Facets: []string{"status"},
		Fields: []listing.FieldDef{
			{Key: "order_number", Column: "order_number", Required: true, MaxLen: 40},
			{Key: "customer_name", Column: "customer_name", Required: true, MaxLen: 255},
			{Key: "customer_email", Column: "customer_email", MaxLen: 255},
			{Key: "customer_phone", Column: "customer_phone", MaxLen: 50},
			{Key: "delivery_address", Column: "delivery_address"},
			{Key: "payment_method", Column: "payment_method", AllowedValues: paymentMethods},
			{Key: "total_amount", Column: "total_amount", Type: filter.Float},
			{Key: "notes", Column: "notes"},
		},
		Workflow: &lifecycle.Workflow{
			Column:  "status",
			Initial: "pending",
			States:  orderStatuses,
			Edges: map[string][]string{
				"pending":    {"processing", "confirmed"},
				"processing": {"shipped"},
				"shipped":    {"delivered"},
				"confirmed":  {"delivered"},
			},
			Cancel: "cancelled",
		},
		Children: []listing.ChildSpec{
			{Key: "items", Table: "order_items", ForeignKey: "order_id", Columns: []string{"product_name", "quantity", "price"}},
		},
		Labels: map[string]map[string]string{
			"status":         OrderStatusLabel,
			"payment_method": PaymentMethodLabel,
		},
		CreatedColumn: "created_at",
		UpdatedColumn: "updated_at",
	}
}

func MenuItems() *listing.Definition {
	return &listing.Definition{
		Name:     "menu_items",
		Title:    "menu item",
		Table:    "menu_items",
		PageSize: 8,
		Columns:  []string{"name", "description", "category", "price", "is_active", "is_featured", "image", "gallery", "created_at"},
		Filters: filter.MustSpec("menu_items", "menu_items", []filter.FilterField{
			{Key: "q", Kind: filter.Substring, Columns: []string{"name", "description"}},
			{Key: "category", Kind: filter.Exact, Columns: []string{"category"}, AllowedValues: categories},
			{Key: "is_active", Kind: filter.Exact, Columns: []string{"is_active"}, Type: filter.Bool},
			{Key: "is_featured", Kind: filter.Exact, Columns: []string{"is_featured"}, Type: filter.Bool},
			{Key: "price", Kind: filter.Range, Columns: []string{"price"}, Type: filter.Float},
		}, filter.WithSorts("-created_at",
			filter.SortField{Key: "created_at", Column: "created_at"},
			filter.SortField{Key: "name", Column: "name"},
			filter.SortField{Key: "price", Column: "price"},
		)),
		Facets: []string{"category", "is_active"},
		Fields: []listing.FieldDef{
			{Key: "name", Column: "name", Required: true, MaxLen: 255},
			{Key: "description", Column: "description"},
			{Key: "category", Column: "category", Required: true, AllowedValues: categories},
			{Key: "price", Column: "price", Type: filter.Float, Required: true},
		},
		Flags: &lifecycle.FlagSet{
			Flags:   []string{"is_active", "is_featured"},
			Implies: map[string]string{"is_featured": "is_active"},
		},
		Slots: []attachments.Slot{
			{Name: "image", Column: "image", Prefix: "menu", Exts: imageExts, MaxBytes: maxImageBytes},
			{Name: "gallery", Column: "gallery", Multi: true, Prefix: "menu_gallery", Exts: imageExts, MaxBytes: maxImageBytes},
		},
		Labels: map[string]map[string]string{
			"category":  CategoryLabel,
			"is_active": ActiveLabel,
		},
		CreatedColumn: "created_at",
		UpdatedColumn: "updated_at",
	}
}

func Ambassadors() *listing.Definition {
	return &listing.Definition{
		Name:     "ambassadors",
		Title:    "ambassador application",
		Table:    "ambassador_applications",
		PageSize: 10,
		Columns:  []string{"full_name", "email", "phone", "city", "experience_level", "motivation", "resume", "status", "created_at"},
		Filters: filter.MustSpec("ambassadors", "ambassador_applications", []filter.FilterField{
			{Key: "q", Kind: filter.Substring, Columns: []string{"full_name", "email", "phone", "city"}},
			{Key: "status", Kind: filter.Exact, Columns: []string{"status"}, AllowedValues: applicationStatuses},
			{Key: "experience_level", Kind: filter.Exact, Columns: []string{"experience_level"}, AllowedValues: experienceLevels},
		}, filter.WithSorts("-created_at",
			filter.SortField{Key: "created_at", Column: "created_at"},
			filter.SortField{Key: "name", Column: "full_name"},
		)),
		Facets: []string{"status", "experience_level"},
		Fields: []listing.FieldDef{
			{Key: "full_name", Column: "full_name", Required: true, MaxLen: 255},
			{Key: "email", Column: "email", Required: true, MaxLen: 255},
			{Key: "phone", Column: "phone", MaxLen: 50},
			{Key: "city", Column: "city", MaxLen: 100},
			{Key: "experience_level", Column: "experience_level", AllowedValues: experienceLevels},
			{Key: "motivation", Column: "motivation"},
		},
		Workflow: &lifecycle.Workflow{
			Column:  "status",
			Initial: "pending",
			States:  applicationStatuses,
			Edges: map[string][]string{
				"pending": {"approved", "rejected"},
			},
		},
		Slots: []attachments.Slot{
			{Name: "resume", Column: "resume", Prefix: "resume", Exts: []string{".pdf", ".doc", ".docx"}, MaxBytes: maxResumeBytes},
		},
		Labels: map[string]map[string]string{
			"status":           ApplicationStatusLabel,
			"experience_level": ExperienceLabel,
		},
		CreatedColumn: "created_at",
		UpdatedColumn: "updated_at",
	}
}

func BlogComments() *listing.Definition {
	return &listing.Definition{
		Name:     "blog_comments",
		Title:    "comment",
		Table:    "blog_comments",
		PageSize: 10,
		Columns:  []string{"post_id", "author_name", "author_email", "content", "status", "created_at"},
		Filters: filter.MustSpec("blog_comments", "blog_comments", []filter.FilterField{
			{Key: "q", Kind: filter.Substring, Columns: []string{"author_name", "author_email", "content"}},
			{Key: "status", Kind: filter.Exact, Columns: []string{"status"}, AllowedValues: commentStatuses},
			{Key: "post_id", Kind: filter.Exact, Columns: []string{"post_id"}, Type: filter.Int},
		}, filter.WithSorts("-created_at", filter.SortField{Key: "created_at", Column: "created_at"})),
		Facets: []string{"status"},
		Fields: []listing.FieldDef{
			{Key: "post_id", Column: "post_id", Type: filter.Int, Required: true},
			{Key: "author_name", Column: "author_name", Required: true, MaxLen: 255},
			{Key: "author_email", Column: "author_email", MaxLen: 255},
			{Key: "content", Column: "content", Required: true},
		},
		Workflow: &lifecycle.Workflow{
			Column:  "status",
			Initial: "pending",
			States:  commentStatuses,
			Edges: map[string][]string{
				"pending":  {"approved", "rejected"},
				"approved": {"rejected"},
			},
		},
		Labels:        map[string]map[string]string{"status": CommentStatusLabel},
		CreatedColumn: "created_at",
		UpdatedColumn: "updated_at",
	}
}

func Testimonials() *listing.Definition {
	return &listing.Definition{
		Name:     "testimonials",
		Title:    "testimonial",
		Table:    "testimonials",
		PageSize: 8,
		Columns:  []string{"customer_name", "content", "rating", "is_active", "is_featured", "photo", "created_at"},
		Filters: filter.MustSpec("testimonials", "testimonials", []filter.FilterField{
			{Key: "q", Kind: filter.Substring, Columns: []string{"customer_name", "content"}},
			{Key: "is_active", Kind: filter.Exact, Columns: []string{"is_active"}, Type: filter.Bool},
			{Key: "is_featured", Kind: filter.Exact, Columns: []string{"is_featured"}, Type: filter.Bool},
			{Key: "rating", Kind: filter.Range, Columns: []string{"rating"}, Type: filter.Int},
		}, filter.WithSorts("-created_at",
			filter.SortField{Key: "created_at", Column: "created_at"},
			filter.SortField{Key: "rating", Column: "rating"},
		)),
		Facets: []string{"is_active"},
		Fields: []listing.FieldDef{
			{Key: "customer_name", Column: "customer_name", Required: true, MaxLen: 255},
			{Key: "content", Column: "content", Required: true},
			{Key: "rating", Column: "rating", Type: filter.Int, AllowedValues: []string{"1", "2", "3", "4", "5"}},
		},
		Flags: &lifecycle.FlagSet{
			Flags:   []string{"is_active", "is_featured"},
			Implies: map[string]string{"is_featured": "is_active"},
		},
		Slots: []attachments.Slot{
			{Name: "photo", Column: "photo", Prefix: "testimonial", Exts: imageExts, MaxBytes: maxImageBytes},
		},
		Labels:        map[string]map[string]string{"is_active": ActiveLabel},
		CreatedColumn: "created_at",
		UpdatedColumn: "updated_at",
	}
}
