package schema

func init() {
	registerCustomers()
	registerPurchases()
	registerCampaigns()
	registerPerformance()
}

func registerCustomers() {
	Register(Template{
		Kind: KindCustomers,
		Fields: []FieldSpec{
			{Name: "customer_id", Type: FieldString, Identifier: true, Description: "string (unique identifier)"},
			{Name: "age", Type: FieldInteger, Bounded: true, Min: 18, Max: 100, Description: "integer (18-100)"},
			{Name: "gender", Type: FieldEnum, EnumValues: []string{"Male", "Female", "Other"}, Description: "string (Male/Female/Other)"},
			{Name: "location", Type: FieldString, Description: "string (city/state)"},
			{Name: "income_range", Type: FieldString, Description: "string (e.g., $50k-$75k)"},
			{Name: "registration_date", Type: FieldDate, Description: "date (YYYY-MM-DD format)"},
			{Name: "preferred_category", Type: FieldString, Description: "string (product category)"},
		},
		ExampleRow: "CUST00001,25,Female,New York,$50k-$75k,2024-01-15,Fashion",
	})
}

func registerPurchases() {
	Register(Template{
		Kind: KindPurchases,
		Fields: []FieldSpec{
			{Name: "customer_id", Type: FieldReference, RefKind: KindCustomers, Description: "string (must exist in customers)"},
			{Name: "product_id", Type: FieldString, Description: "string (product identifier)"},
			{Name: "category", Type: FieldString, Description: "string (product category)"},
			{Name: "amount", Type: FieldDecimal, Description: "decimal (purchase amount)"},
			{Name: "quantity", Type: FieldInteger, Bounded: true, Min: 1, Max: 1_000_000, Description: "integer (number of items)"},
			{Name: "purchase_date", Type: FieldDate, Description: "date (YYYY-MM-DD format)"},
			{Name: "channel", Type: FieldEnum, EnumValues: []string{"online", "store"}, Description: "string (online/store)"},
		},
		ExampleRow: "CUST00001,PROD001,Fashion,89.99,1,2024-01-20,online",
	})
}

func registerCampaigns() {
	Register(Template{
		Kind: KindCampaigns,
		Fields: []FieldSpec{
			{Name: "campaign_id", Type: FieldString, Identifier: true, Description: "string (unique identifier)"},
			{Name: "name", Type: FieldString, Description: "string (campaign name)"},
			{Name: "type", Type: FieldEnum, EnumValues: []string{"email", "social", "display", "search"}, Description: "string (email/social/display/search)"},
			{Name: "target_segment", Type: FieldString, Description: "string (target audience)"},
			{Name: "budget", Type: FieldDecimal, Description: "decimal (campaign budget)"},
			{Name: "start_date", Type: FieldDate, Description: "date (YYYY-MM-DD format)"},
			{Name: "end_date", Type: FieldDate, Description: "date (YYYY-MM-DD format)"},
			{Name: "status", Type: FieldEnum, EnumValues: []string{"active", "paused", "completed"}, Description: "string (active/paused/completed)"},
		},
		ExampleRow: "CAMP0001,Summer Sale,email,Fashion Lovers,5000.00,2024-06-01,2024-06-30,completed",
	})
}

func registerPerformance() {
	Register(Template{
		Kind: KindPerformance,
		Fields: []FieldSpec{
			{Name: "campaign_id", Type: FieldReference, RefKind: KindCampaigns, Description: "string (must exist in campaigns)"},
			{Name: "impressions", Type: FieldInteger, Bounded: true, Min: 0, Max: 1_000_000_000, Description: "integer (ad impressions)"},
			{Name: "clicks", Type: FieldInteger, Bounded: true, Min: 0, Max: 1_000_000_000, Description: "integer (ad clicks)"},
			{Name: "conversions", Type: FieldInteger, Bounded: true, Min: 0, Max: 1_000_000_000, Description: "integer (conversions)"},
			{Name: "revenue", Type: FieldDecimal, Description: "decimal (revenue generated)"},
			{Name: "cost", Type: FieldDecimal, Description: "decimal (campaign cost)"},
			{Name: "date", Type: FieldDate, Description: "date (YYYY-MM-DD format)"},
		},
		ExampleRow: "CAMP0001,10000,500,25,2500.00,1000.00,2024-06-01",
	})
}
