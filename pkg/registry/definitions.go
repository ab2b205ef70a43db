package registry

func rel(name, joinTable, ownerColumn, otherColumn, otherType string) RelationDef {
	return RelationDef{
		Name:        name,
		JoinTable:   joinTable,
		OwnerColumn: ownerColumn,
		OtherColumn: otherColumn,
		OtherType:   otherType,
	}
}

func commonColumns(extra ...Column) []Column {
	cols := []Column{
		{Name: "name"},
		{Name: "page_name", Kind: Derived},
		{Name: "aliases"},
		{Name: "deck"},
		{Name: "description"},
		{Name: "formatted_description", Kind: Derived},
		{Name: "date_created", Source: "date_added", Kind: Nullable},
		{Name: "date_updated", Source: "date_last_updated", Kind: Nullable},
	}
	return append(cols, extra...)
}

func definitions() []*ResourceTypeDef {
	return []*ResourceTypeDef{
		{
			Name:         "accessory",
			Plural:       "accessories",
			TypeCode:     3000,
			TableName:    "wiki_accessory",
			TemplateName: "Accessory",
			PagePrefix:   "Accessories",
			Columns:      commonColumns(),
			HasImage:     true,
		},
		{
			Name:         "character",
			Plural:       "characters",
			TypeCode:     3005,
			TableName:    "wiki_character",
			TemplateName: "Character",
			PagePrefix:   "Characters",
			Columns: commonColumns(
				Column{Name: "real_name"},
				Column{Name: "gender", Kind: Integer},
				Column{Name: "birthday", Kind: Nullable},
				// not supplied by the API
				Column{Name: "death", Kind: Nullable},
			),
			Relations: []RelationDef{
				rel("concepts", "wiki_assoc_character_concept", "character_id", "concept_id", "concept"),
				rel("enemies", "wiki_assoc_character_enemy", "character_id", "enemy_character_id", "character"),
				rel("franchises", "wiki_assoc_character_franchise", "character_id", "franchise_id", "franchise"),
				rel("friends", "wiki_assoc_character_friend", "character_id", "friend_character_id", "character"),
				rel("games", "wiki_assoc_game_character", "character_id", "game_id", "game"),
				rel("locations", "wiki_assoc_character_location", "character_id", "location_id", "location"),
				rel("people", "wiki_assoc_character_person", "character_id", "person_id", "person"),
				rel("objects", "wiki_assoc_character_thing", "character_id", "thing_id", "thing"),
			},
			TemplateFields: []TemplateField{
				{Label: "RealName", Column: "real_name"},
				{Label: "Gender", Column: "gender", Format: FormatGender},
				{Label: "Birthday", Column: "birthday"},
				{Label: "Death", Column: "death"},
			},
			HasImage: true,
		},
		{
			Name:         "company",
			Plural:       "companies",
			TypeCode:     3010,
			TableName:    "wiki_company",
			TemplateName: "Company",
			PagePrefix:   "Companies",
			Columns: commonColumns(
				Column{Name: "abbreviation"},
				Column{Name: "founded_date", Source: "date_founded", Kind: Nullable},
				Column{Name: "address", Source: "location_address"},
				Column{Name: "city", Source: "location_city"},
				Column{Name: "country", Source: "location_country"},
				Column{Name: "state", Source: "location_state"},
				Column{Name: "phone"},
				Column{Name: "website"},
			),
			Relations: []RelationDef{
				rel("characters", "wiki_assoc_character_company", "company_id", "character_id", "character"),
				rel("concepts", "wiki_assoc_company_concept", "company_id", "concept_id", "concept"),
				rel("developed_games", "wiki_assoc_game_developer", "company_id", "game_id", "game"),
				rel("locations", "wiki_assoc_company_location", "company_id", "location_id", "location"),
				rel("objects", "wiki_assoc_company_thing", "company_id", "thing_id", "thing"),
				rel("people", "wiki_assoc_company_person", "company_id", "person_id", "person"),
				rel("published_games", "wiki_assoc_game_publisher", "company_id", "game_id", "game"),
			},
			TemplateFields: []TemplateField{
				{Label: "Abbreviation", Column: "abbreviation"},
				{Label: "FoundedDate", Column: "founded_date"},
				{Label: "Address", Column: "address"},
				{Label: "City", Column: "city"},
				{Label: "Country", Column: "country"},
				{Label: "State", Column: "state"},
				{Label: "Phone", Column: "phone"},
				{Label: "Website", Column: "website"},
			},
			HasImage: true,
		},
		{
			Name:         "concept",
			Plural:       "concepts",
			TypeCode:     3015,
			TableName:    "wiki_concept",
			TemplateName: "Concept",
			PagePrefix:   "Concepts",
			Columns:      commonColumns(),
			Relations: []RelationDef{
				rel("characters", "wiki_assoc_character_concept", "concept_id", "character_id", "character"),
				rel("concepts", "wiki_assoc_concept_similar", "concept_id", "similar_concept_id", "concept"),
				rel("franchises", "wiki_assoc_concept_franchise", "concept_id", "franchise_id", "franchise"),
				rel("games", "wiki_assoc_game_concept", "concept_id", "game_id", "game"),
				rel("locations", "wiki_assoc_concept_location", "concept_id", "location_id", "location"),
				rel("objects", "wiki_assoc_concept_thing", "concept_id", "thing_id", "thing"),
				rel("people", "wiki_assoc_concept_person", "concept_id", "person_id", "person"),
			},
			HasImage: true,
		},
		{
			Name:         "franchise",
			Plural:       "franchises",
			TypeCode:     3025,
			TableName:    "wiki_franchise",
			TemplateName: "Franchise",
			PagePrefix:   "Franchises",
			Columns:      commonColumns(),
			Relations: []RelationDef{
				rel("characters", "wiki_assoc_character_franchise", "franchise_id", "character_id", "character"),
				rel("concepts", "wiki_assoc_concept_franchise", "franchise_id", "concept_id", "concept"),
				rel("games", "wiki_assoc_game_franchise", "franchise_id", "game_id", "game"),
				rel("locations", "wiki_assoc_franchise_location", "franchise_id", "location_id", "location"),
				rel("objects", "wiki_assoc_franchise_thing", "franchise_id", "thing_id", "thing"),
				rel("people", "wiki_assoc_franchise_person", "franchise_id", "person_id", "person"),
			},
			HasImage: true,
		},
		{
			Name:         "game",
			Plural:       "games",
			TypeCode:     3030,
			TableName:    "wiki_game",
			TemplateName: "Game",
			PagePrefix:   "Games",
			Columns: commonColumns(
				Column{Name: "release_date", Kind: Derived},
				Column{Name: "release_date_type", Kind: Derived},
			),
			Relations: []RelationDef{
				rel("characters", "wiki_assoc_game_character", "game_id", "character_id", "character"),
				rel("concepts", "wiki_assoc_game_concept", "game_id", "concept_id", "concept"),
				rel("developers", "wiki_assoc_game_developer", "game_id", "company_id", "company"),
				rel("franchises", "wiki_assoc_game_franchise", "game_id", "franchise_id", "franchise"),
				rel("genres", "wiki_game_to_genre", "game_id", "genre_id", "genre"),
				rel("locations", "wiki_assoc_game_location", "game_id", "location_id", "location"),
				rel("objects", "wiki_assoc_game_thing", "game_id", "thing_id", "thing"),
				rel("people", "wiki_assoc_game_person", "game_id", "person_id", "person"),
				rel("platforms", "wiki_game_to_platform", "game_id", "platform_id", "platform"),
				rel("publishers", "wiki_assoc_game_publisher", "game_id", "company_id", "company"),
				rel("similar_games", "wiki_assoc_game_similar", "game_id", "similar_game_id", "game"),
				rel("themes", "wiki_game_to_theme", "game_id", "theme_id", "theme"),
			},
			TemplateFields: []TemplateField{
				{Label: "ReleaseDate", Column: "release_date"},
				{Label: "ReleaseDateType", Column: "release_date_type", Format: FormatReleaseDateType},
			},
			HasImage:          true,
			TracksReleaseDate: true,
		},
		{
			Name:         "theme",
			Plural:       "themes",
			TypeCode:     3032,
			TableName:    "wiki_game_theme",
			TemplateName: "Theme",
			PagePrefix:   "Themes",
			Columns: []Column{
				{Name: "name"},
				{Name: "page_name", Kind: Derived},
			},
		},
		{
			Name:         "location",
			Plural:       "locations",
			TypeCode:     3035,
			TableName:    "wiki_location",
			TemplateName: "Location",
			PagePrefix:   "Locations",
			Columns:      commonColumns(),
			Relations: []RelationDef{
				rel("characters", "wiki_assoc_character_location", "location_id", "character_id", "character"),
				rel("concepts", "wiki_assoc_concept_location", "location_id", "concept_id", "concept"),
				rel("franchises", "wiki_assoc_franchise_location", "location_id", "franchise_id", "franchise"),
				rel("games", "wiki_assoc_game_location", "location_id", "game_id", "game"),
				rel("objects", "wiki_assoc_location_thing", "location_id", "thing_id", "thing"),
				rel("people", "wiki_assoc_location_person", "location_id", "person_id", "person"),
			},
			HasImage: true,
		},
		{
			Name:         "person",
			Plural:       "people",
			TypeCode:     3040,
			TableName:    "wiki_person",
			TemplateName: "Person",
			PagePrefix:   "People",
			Columns: commonColumns(
				Column{Name: "birthday", Source: "birth_date", Kind: Nullable},
				Column{Name: "country"},
				Column{Name: "death", Source: "death_date", Kind: Nullable},
				Column{Name: "gender", Kind: Integer},
				Column{Name: "hometown"},
			),
			Relations: []RelationDef{
				rel("characters", "wiki_assoc_character_person", "person_id", "character_id", "character"),
				rel("concepts", "wiki_assoc_concept_person", "person_id", "concept_id", "concept"),
				rel("franchises", "wiki_assoc_franchise_person", "person_id", "franchise_id", "franchise"),
				rel("games", "wiki_assoc_game_person", "person_id", "game_id", "game"),
				rel("locations", "wiki_assoc_location_person", "person_id", "location_id", "location"),
				rel("objects", "wiki_assoc_person_thing", "person_id", "thing_id", "thing"),
				rel("people", "wiki_assoc_person_similar", "person_id", "similar_person_id", "person"),
			},
			TemplateFields: []TemplateField{
				{Label: "Gender", Column: "gender", Format: FormatGender},
				{Label: "Birthday", Column: "birthday"},
				{Label: "Death", Column: "death"},
				{Label: "Country", Column: "country"},
				{Label: "Hometown", Column: "hometown"},
			},
			HasImage: true,
		},
		{
			Name:         "platform",
			Plural:       "platforms",
			TypeCode:     3045,
			TableName:    "wiki_platform",
			TemplateName: "Platform",
			PagePrefix:   "Platforms",
			Columns: commonColumns(
				Column{Name: "short_name", Source: "abbreviation"},
				Column{Name: "release_date", Kind: Nullable},
				Column{Name: "install_base", Kind: Integer},
				Column{Name: "online_support", Kind: Nullable},
				Column{Name: "original_price", Kind: Nullable},
				Column{Name: "manufacturer_id", Source: "company.id", Kind: Integer},
			),
			TemplateFields: []TemplateField{
				{Label: "ShortName", Column: "short_name"},
				{Label: "ReleaseDate", Column: "release_date"},
				{Label: "InstallBase", Column: "install_base"},
				{Label: "OriginalPrice", Column: "original_price"},
			},
			HasImage: true,
		},
		{
			Name:         "thing",
			APIName:      "object",
			Plural:       "objects",
			TypeCode:     3055,
			TableName:    "wiki_thing",
			TemplateName: "Object",
			PagePrefix:   "Objects",
			Columns:      commonColumns(),
			Relations: []RelationDef{
				rel("characters", "wiki_assoc_character_thing", "thing_id", "character_id", "character"),
				rel("concepts", "wiki_assoc_concept_thing", "thing_id", "concept_id", "concept"),
				rel("franchises", "wiki_assoc_franchise_thing", "thing_id", "franchise_id", "franchise"),
				rel("games", "wiki_assoc_game_thing", "thing_id", "game_id", "game"),
				rel("locations", "wiki_assoc_location_thing", "thing_id", "location_id", "location"),
				rel("people", "wiki_assoc_person_thing", "thing_id", "person_id", "person"),
				rel("similar", "wiki_assoc_thing_similar", "thing_id", "similar_thing_id", "thing"),
			},
			HasImage: true,
		},
		{
			Name:         "genre",
			Plural:       "genres",
			TypeCode:     3060,
			TableName:    "wiki_game_genre",
			TemplateName: "Genre",
			PagePrefix:   "Genres",
			Columns:      commonColumns(),
			HasImage:     true,
		},
	}
}
