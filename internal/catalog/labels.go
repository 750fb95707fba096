package catalog

// Display labels, built once. Rows carry "<column>_label" for these.
var (
	OrderStatusLabel = map[string]string{
		"pending":    "Pending",
		"processing": "Processing",
		"confirmed":  "Confirmed",
		"shipped":    "Out for delivery",
		"delivered":  "Delivered",
		"cancelled":  "Cancelled",
	}

	PaymentMethodLabel = map[string]string{
		"cash":     "Cash on delivery",
		"card":     "Card",
		"transfer": "Bank transfer",
		"wallet":   "Wallet",
	}

	ApplicationStatusLabel = map[string]string{
		"pending":  "Under review",
		"approved": "Approved",
		"rejected": "Rejected",
	}

	ExperienceLabel = map[string]string{
		"none":         "No experience",
		"beginner":     "Less than 1 year",
		"intermediate": "1-3 years",
		"expert":       "More than 3 years",
	}

	CommentStatusLabel = map[string]string{
		"pending":  "Awaiting moderation",
		"approved": "Published",
		"rejected": "Hidden",
	}

	CategoryLabel = map[string]string{
		"starters": "Starters",
		"mains":    "Main dishes",
		"sides":    "Sides",
		"desserts": "Desserts",
		"drinks":   "Drinks",
	}

	ActiveLabel = map[string]string{
		"1": "Active",
		"0": "Inactive",
	}
)

func keys(m map[string]string, order ...string) []string {
	out := make([]string, 0, len(order))
	for _, k := range order {
		if _, ok := m[k]; ok {
			out = append(out, k)
		}
	}
	return out
}
