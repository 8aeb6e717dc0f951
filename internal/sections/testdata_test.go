package sections

func clientLibSections() []Section {
	return []Section{
		{ID: "introduction", Type: TypeMarkdown, Title: "Introduction", Slug: "introduction"},
		{ID: "installing", Type: TypeFunction, Title: "Installing", Slug: "installing"},
		{
			ID: "database", Type: TypeCategory, Title: "Database",
			Items: []Section{
				{ID: "select", Type: TypeFunction, Title: "Fetch data", Slug: "select"},
				{ID: "insert", Type: TypeFunction, Title: "Create data", Slug: "insert", Excludes: []string{"reference_dart_v1"}},
				{
					ID: "using-filters", Type: TypeFunction, Title: "Using filters", Slug: "using-filters",
					Items: []Section{
						{ID: "eq", Type: TypeFunction, Title: "Column is equal to a value", Slug: "eq"},
						{ID: "neq", Type: TypeFunction, Title: "Column is not equal to a value", Slug: "neq"},
					},
				},
			},
		},
		{
			ID: "auth", Type: TypeCategory, Title: "Auth",
			Items: []Section{
				{ID: "sign-up", Type: TypeFunction, Title: "Create a new user", Slug: "auth-signup"},
				{
					ID: "auth-admin", Type: TypeCategory, Title: "Auth Admin",
					Items: []Section{
						{ID: "admin-api", Type: TypeMarkdown, Title: "Overview", Slug: "admin-api"},
						{ID: "get-user-by-id", Type: TypeFunction, Title: "Retrieve a user", Slug: "auth-admin-getuserbyid"},
					},
				},
			},
		},
		{ID: "realtime", Type: TypeCategory, Title: "Realtime", Excludes: []string{"reference_python_v2"}, Items: []Section{
			{ID: "subscribe", Type: TypeFunction, Title: "Subscribe to channel", Slug: "subscribe"},
		}},
	}
}

func ids(sections []Section) []string {
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		out = append(out, s.ID)
	}
	return out
}
