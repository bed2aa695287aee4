package wizard

// Question keys.
const (
	KeyPropertyType        = "property_type"
	KeySquareFeet          = "square_feet"
	KeyDeskCount           = "desk_count"
	KeyMonthlyBudget       = "monthly_budget"
	KeyCity                = "city"
	KeyNeighborhood        = "neighborhood"
	KeyMoveIn              = "move_in"
	KeyBuildOut            = "build_out"
	KeySpecialRequirements = "special_requirements"
	KeyName                = "name"
	KeyEmail               = "email"
	KeyPhone               = "phone"
	KeyCompany             = "company"
)

func propertyTypeIs(types ...string) func(Answers) bool {
	return func(a Answers) bool {
		for _, t := range types {
			if a[KeyPropertyType] == t {
				return true
			}
		}
		return false
	}
}

// DefaultSteps returns the questionnaire used on /questionnaire.
func DefaultSteps() []Step {
	return []Step{
		{
			ID:     "property-type",
			Title:  "Property type",
			Prompt: "What kind of space are you looking for?",
			Fields: []Field{{
				Key:      KeyPropertyType,
				Label:    "Property type",
				Kind:     FieldChoice,
				Required: true,
				Options: []Option{
					{Value: "office", Label: "Office"},
					{Value: "retail", Label: "Retail"},
					{Value: "industrial", Label: "Industrial / warehouse"},
					{Value: "medical", Label: "Medical"},
					{Value: "flex", Label: "Flex space"},
					{Value: "coworking", Label: "Coworking / shared office"},
				},
			}},
		},
		{
			ID:     "size",
			Title:  "Size",
			Prompt: "Roughly how much space do you need?",
			Fields: []Field{{
				Key:      KeySquareFeet,
				Label:    "Square feet",
				Kind:     FieldChoice,
				Required: true,
				Options: []Option{
					{Value: "under-1000", Label: "Under 1,000 sq ft"},
					{Value: "1000-2500", Label: "1,000 – 2,500 sq ft"},
					{Value: "2500-5000", Label: "2,500 – 5,000 sq ft"},
					{Value: "5000-10000", Label: "5,000 – 10,000 sq ft"},
					{Value: "10000-plus", Label: "10,000+ sq ft"},
				},
			}},
			When: func(a Answers) bool { return a[KeyPropertyType] != "coworking" },
		},
		{
			ID:     "seats",
			Title:  "Team size",
			Prompt: "How many desks do you need?",
			Fields: []Field{{
				Key:      KeyDeskCount,
				Label:    "Desks",
				Kind:     FieldChoice,
				Required: true,
				Options: []Option{
					{Value: "1-5", Label: "1 – 5"},
					{Value: "6-15", Label: "6 – 15"},
					{Value: "16-30", Label: "16 – 30"},
					{Value: "30-plus", Label: "30+"},
				},
			}},
			When: propertyTypeIs("coworking"),
		},
		{
			ID:     "budget",
			Title:  "Budget",
			Prompt: "What is your monthly budget, including NNN charges?",
			Fields: []Field{{
				Key:      KeyMonthlyBudget,
				Label:    "Monthly budget",
				Kind:     FieldChoice,
				Required: true,
				Options: []Option{
					{Value: "under-2500", Label: "Under $2,500"},
					{Value: "2500-5000", Label: "$2,500 – $5,000"},
					{Value: "5000-10000", Label: "$5,000 – $10,000"},
					{Value: "10000-25000", Label: "$10,000 – $25,000"},
					{Value: "25000-plus", Label: "$25,000+"},
				},
			}},
		},
		{
			ID:     "location",
			Title:  "Location",
			Prompt: "Where should the space be?",
			Fields: []Field{
				{Key: KeyCity, Label: "City", Kind: FieldText, Required: true, Placeholder: "Austin"},
				{Key: KeyNeighborhood, Label: "Neighborhood or submarket", Kind: FieldText, Placeholder: "East Austin"},
			},
		},
		{
			ID:     "timeline",
			Title:  "Timeline",
			Prompt: "When do you want to move in?",
			Fields: []Field{{
				Key:      KeyMoveIn,
				Label:    "Move-in",
				Kind:     FieldChoice,
				Required: true,
				Options: []Option{
					{Value: "asap", Label: "As soon as possible"},
					{Value: "1-3-months", Label: "1 – 3 months"},
					{Value: "3-6-months", Label: "3 – 6 months"},
					{Value: "6-12-months", Label: "6 – 12 months"},
					{Value: "exploring", Label: "Just exploring"},
				},
			}},
		},
		{
			ID:     "build-out",
			Title:  "Build-out",
			Prompt: "How much work does the space need before you open?",
			Fields: []Field{
				{
					Key:      KeyBuildOut,
					Label:    "Build-out",
					Kind:     FieldChoice,
					Required: true,
					Options: []Option{
						{Value: "move-in-ready", Label: "Move-in ready"},
						{Value: "light", Label: "Light refresh"},
						{Value: "full", Label: "Full build-out"},
						{Value: "unsure", Label: "Not sure yet"},
					},
				},
				{Key: KeySpecialRequirements, Label: "Special requirements", Kind: FieldText, Placeholder: "Plumbing, venting, loading dock…"},
			},
			When: propertyTypeIs("retail", "medical", "industrial"),
		},
		{
			ID:     "contact",
			Title:  "Contact",
			Prompt: "Where should we send your matches?",
			Fields: []Field{
				{Key: KeyName, Label: "Name", Kind: FieldText, Required: true},
				{Key: KeyEmail, Label: "Email", Kind: FieldEmail, Required: true},
				{Key: KeyPhone, Label: "Phone", Kind: FieldPhone},
				{Key: KeyCompany, Label: "Company", Kind: FieldText},
			},
		},
	}
}
