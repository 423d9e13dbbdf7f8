package schema

// Default returns the registry of life-tracking tables synced by the mobile client.
func Default() *Registry {
	r, err := NewRegistry(defaultTables()...)
	if err != nil {
		// The table list is static; an error here is a programming mistake.
		panic(err)
	}
	return r
}

func defaultTables() []Table {
	return []Table{
		{
			Name: "DailyNotes",
			Key:  []string{"date"},
			Columns: []Column{
				{Name: "date", Type: TypeDate, Required: true},
				{Name: "morningComment", Type: TypeText},
				{Name: "eveningComment", Type: TypeText},
				{Name: "wakeHour", Type: TypeText},
				{Name: "energy", Type: TypeInteger},
				{Name: "success", Type: TypeText},
				{Name: "beBetter", Type: TypeText},
				{Name: "dayRating", Type: TypeInteger},
			},
		},
		{
			Name: "QuantifiableHabits",
			Key:  []string{"date", "habitKey"},
			Columns: []Column{
				{Name: "date", Type: TypeDate, Required: true},
				{Name: "habitKey", Type: TypeText, Required: true},
				{Name: "value", Type: TypeInteger, Required: true},
			},
		},
		{
			Name: "BooleanHabits",
			Key:  []string{"date", "habitKey"},
			Columns: []Column{
				{Name: "date", Type: TypeDate, Required: true},
				{Name: "habitKey", Type: TypeText, Required: true},
				{Name: "value", Type: TypeInteger, Required: true},
			},
		},
		{
			Name: "Mood",
			Key:  []string{IdentifierColumn},
			Columns: []Column{
				{Name: "date", Type: TypeText},
				{Name: "rating", Type: TypeInteger},
				{Name: "comment", Type: TypeText},
				{Name: "tag", Type: TypeText},
				{Name: "description", Type: TypeText},
			},
		},
		{
			Name: "Money",
			Key:  []string{IdentifierColumn},
			Columns: []Column{
				{Name: "date", Type: TypeText},
				{Name: "amount", Type: TypeReal},
				{Name: "type", Type: TypeText},
				{Name: "account", Type: TypeText},
				{Name: "tag", Type: TypeText},
				{Name: "description", Type: TypeText},
				{Name: "due", Type: TypeText},
			},
		},
		{
			Name: "Time",
			Key:  []string{IdentifierColumn},
			Columns: []Column{
				{Name: "date", Type: TypeText, Required: true},
				{Name: "tag", Type: TypeText, Required: true},
				{Name: "description", Type: TypeText},
				{Name: "duration", Type: TypeText},
				{Name: "startTime", Type: TypeText},
				{Name: "endTime", Type: TypeText},
			},
		},
		{
			Name: "Text",
			Key:  []string{IdentifierColumn},
			Columns: []Column{
				{Name: "period", Type: TypeText, Required: true},
				{Name: "key", Type: TypeText},
				{Name: "text", Type: TypeText, Required: true},
			},
		},
		{
			Name: "Objectives",
			Key:  []string{IdentifierColumn},
			Columns: []Column{
				{Name: "period", Type: TypeText},
				{Name: "objective", Type: TypeText, Required: true},
				{Name: "pillarUuid", Type: TypeText},
				{Name: "completed", Type: TypeInteger},
				{Name: "note", Type: TypeText},
			},
		},
		{
			Name: "Pillars",
			Key:  []string{"name"},
			Columns: []Column{
				{Name: "name", Type: TypeText, Required: true},
				{Name: "description", Type: TypeText},
				{Name: "emoji", Type: TypeText},
			},
		},
		{
			Name: "Tags",
			Key:  []string{IdentifierColumn},
			Columns: []Column{
				{Name: "text", Type: TypeText, Required: true},
				{Name: "type", Type: TypeText},
				{Name: "category", Type: TypeText},
				{Name: "emoji", Type: TypeText},
				{Name: "linkedTag", Type: TypeText},
				{Name: "color", Type: TypeText},
			},
		},
		{
			Name: "Library",
			Key:  []string{"type", "title"},
			Columns: []Column{
				{Name: "title", Type: TypeText, Required: true},
				{Name: "seen", Type: TypeText, Required: true},
				{Name: "type", Type: TypeText, Required: true},
				{Name: "genre", Type: TypeText, Required: true},
				{Name: "creator", Type: TypeText},
				{Name: "releaseYear", Type: TypeText},
				{Name: "rating", Type: TypeReal},
				{Name: "comments", Type: TypeText},
				{Name: "mediaImage", Type: TypeText},
				{Name: "runtime", Type: TypeText},
				{Name: "pages", Type: TypeInteger},
			},
		},
		{
			Name: "Music",
			Key:  []string{"libraryUuid", "trackName"},
			Columns: []Column{
				{Name: "libraryUuid", Type: TypeText, Required: true},
				{Name: "trackName", Type: TypeText, Required: true},
				{Name: "fileName", Type: TypeText},
				{Name: "trackNumber", Type: TypeInteger},
				{Name: "durationMs", Type: TypeInteger},
				{Name: "playCount", Type: TypeInteger},
				{Name: "rating", Type: TypeInteger},
			},
		},
		{
			Name: "UserSettings",
			Key:  []string{"settingKey"},
			Columns: []Column{
				{Name: "settingKey", Type: TypeText, Required: true},
				{Name: "value", Type: TypeText, Required: true},
				{Name: "type", Type: TypeText, Required: true},
				{Name: "color", Type: TypeText},
			},
		},
	}
}
