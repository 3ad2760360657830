package draws

import "strings"

// Category describes one recurring draw slot of the weekly schedule.
type Category struct {
	Day     string
	Time    string
	Name    string
	Slug    string
	APIName string
}

type scheduleSlot struct {
	time    string
	name    string
	slug    string
	apiName string
}

type scheduleDay struct {
	day   string
	slots []scheduleSlot
}

// The provider names its draws without accents and calls "Espèces" "Cash".
var weeklySchedule = []scheduleDay{
	{day: "Lundi", slots: []scheduleSlot{
		{time: "10H", name: "Réveil", slug: "reveil", apiName: "Reveil"},
		{time: "13H", name: "Étoile", slug: "etoile", apiName: "Etoile"},
		{time: "16H", name: "Akwaba", slug: "akwaba", apiName: "Akwaba"},
		{time: "18H15", name: "Monday Special", slug: "monday-special", apiName: "Monday Special"},
	}},
	{day: "Mardi", slots: []scheduleSlot{
		{time: "10H", name: "La Matinale", slug: "la-matinale", apiName: "La Matinale"},
		{time: "13H", name: "Émergence", slug: "emergence", apiName: "Emergence"},
		{time: "16H", name: "Sika", slug: "sika", apiName: "Sika"},
		{time: "18H15", name: "Lucky Tuesday", slug: "lucky-tuesday", apiName: "Lucky Tuesday"},
	}},
	{day: "Mercredi", slots: []scheduleSlot{
		{time: "10H", name: "Première Heure", slug: "premiere-heure", apiName: "Premiere Heure"},
		{time: "13H", name: "Fortune", slug: "fortune", apiName: "Fortune"},
		{time: "16H", name: "Baraka", slug: "baraka", apiName: "Baraka"},
		{time: "18H15", name: "Midweek", slug: "midweek", apiName: "Midweek"},
	}},
	{day: "Jeudi", slots: []scheduleSlot{
		{time: "10H", name: "Kado", slug: "kado", apiName: "Kado"},
		{time: "13H", name: "Privilège", slug: "privilege", apiName: "Privilege"},
		{time: "16H", name: "Monni", slug: "monni", apiName: "Monni"},
		{time: "18H15", name: "Fortune Thursday", slug: "fortune-thursday", apiName: "Fortune Thursday"},
	}},
	{day: "Vendredi", slots: []scheduleSlot{
		{time: "10H", name: "Espèces", slug: "especes", apiName: "Cash"},
		{time: "13H", name: "Solution", slug: "solution", apiName: "Solution"},
		{time: "16H", name: "Wari", slug: "wari", apiName: "Wari"},
		{time: "18H15", name: "Friday Bonanza", slug: "friday-bonanza", apiName: "Friday Bonanza"},
	}},
	{day: "Samedi", slots: []scheduleSlot{
		{time: "10H", name: "Soutra", slug: "soutra", apiName: "Soutra"},
		{time: "13H", name: "Diamant", slug: "diamant", apiName: "Diamant"},
		{time: "16H", name: "Moaye", slug: "moaye", apiName: "Moaye"},
		{time: "18H15", name: "National", slug: "national", apiName: "National"},
	}},
	{day: "Dimanche", slots: []scheduleSlot{
		{time: "10H", name: "Bénédiction", slug: "benediction", apiName: "Benediction"},
		{time: "13H", name: "Prestige", slug: "prestige", apiName: "Prestige"},
		{time: "16H", name: "Awalé", slug: "awale", apiName: "Awale"},
		{time: "18H15", name: "Espoir", slug: "espoir", apiName: "Espoir"},
	}},
}

var (
	catalog          = buildCatalog()
	catalogBySlug    = indexCatalog(func(category Category) string { return category.Slug })
	catalogByAPIName = indexCatalog(func(category Category) string { return category.APIName })
)

func buildCatalog() []Category {
	categories := make([]Category, 0, 28)
	for _, day := range weeklySchedule {
		for _, slot := range day.slots {
			categories = append(categories, Category{
				Day:     day.day,
				Time:    slot.time,
				Name:    slot.name,
				Slug:    slot.slug,
				APIName: slot.apiName,
			})
		}
	}
	return categories
}

func indexCatalog(key func(Category) string) map[string]Category {
	index := make(map[string]Category, len(catalog))
	for _, category := range catalog {
		index[key(category)] = category
	}
	return index
}

// Categories returns the weekly schedule in day then time order.
func Categories() []Category {
	return append([]Category(nil), catalog...)
}

// CategoryBySlug looks up a category by its URL slug.
func CategoryBySlug(slug string) (Category, bool) {
	category, ok := catalogBySlug[strings.ToLower(strings.TrimSpace(slug))]
	return category, ok
}

// CategoryByAPIName looks up a category by the provider's draw name.
func CategoryByAPIName(apiName string) (Category, bool) {
	category, ok := catalogByAPIName[strings.TrimSpace(apiName)]
	return category, ok
}

// ResolveCategory accepts either a slug or a provider draw name.
func ResolveCategory(value string) (Category, bool) {
	if category, ok := CategoryByAPIName(value); ok {
		return category, true
	}
	return CategoryBySlug(value)
}
