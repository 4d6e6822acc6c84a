// internal/catalog/catalog.go
package catalog

import "strings"

// KeySeparator joins a category id and an item id into a quote-wide item key.
const KeySeparator = "_"

type Item struct {
	ID          string `json:"id"`
	Title       string `json:"titre"`
	Description string `json:"description"`
}

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"nom"`
	Items []Item `json:"items"`
}

// categories is the fixed work catalog. It is loaded once and never mutated;
// Categories returns a copy so callers cannot alter it.
var categories = []Category{
	{
		ID:   "0",
		Name: "0.0 - Travaux Préparatoires et Démolition",
		Items: []Item{
			{ID: "0-1", Title: "Permis et études", Description: "Permis de construction, étude géotechnique, certificat de localisation"},
			{ID: "0-2", Title: "Démolition et décontamination", Description: "Démolition structures existantes, décontamination si applicable"},
			{ID: "0-3", Title: "Préparation du terrain", Description: "Déboisement, nivellement, services temporaires"},
		},
	},
	{
		ID:   "1",
		Name: "1.0 - Fondation, Infrastructure et Services",
		Items: []Item{
			{ID: "1-1", Title: "Excavation et remblai", Description: "Excavation générale, remblai granulaire compacté"},
			{ID: "1-2", Title: "Fondation complète", Description: "Béton 30 MPA, armature, coffrage, isolation"},
			{ID: "1-3", Title: "Drainage et imperméabilisation", Description: "Drain français, membrane, pompe de puisard"},
			{ID: "1-4", Title: "Raccordements et services", Description: "Égout, aqueduc, pluvial, système septique si applicable"},
		},
	},
	{
		ID:   "2",
		Name: "2.0 - Structure et Charpente",
		Items: []Item{
			{ID: "2-1", Title: "Charpente de bois", Description: "Murs extérieurs et intérieurs, planchers, toiture"},
			{ID: "2-2", Title: "Poutrelles et colonnes", Description: "Système de poutrelles, colonnes d'acier si requis"},
			{ID: "2-3", Title: "Plancher de béton", Description: "Dalle structurale, finition, durcisseur"},
		},
	},
	{
		ID:   "3",
		Name: "3.0 - Enveloppe Extérieure",
		Items: []Item{
			{ID: "3-1", Title: "Toiture", Description: "Bardeaux architecturaux, membrane, ventilation"},
			{ID: "3-2", Title: "Revêtement extérieur", Description: "Parement, fourrures, pare-air"},
			{ID: "3-3", Title: "Portes et fenêtres", Description: "Portes, fenêtres Energy Star, installation"},
			{ID: "3-4", Title: "Balcons et terrasses", Description: "Structure, revêtement, garde-corps"},
		},
	},
	{
		ID:   "4",
		Name: "4.0 - Systèmes Mécaniques et Électriques",
		Items: []Item{
			{ID: "4-1", Title: "Plomberie complète", Description: "Tuyauterie, fixtures, chauffe-eau"},
			{ID: "4-2", Title: "Chauffage et climatisation", Description: "Système CVAC, thermostats, ventilation"},
			{ID: "4-3", Title: "Électricité complète", Description: "Panneau, filage, prises, luminaires"},
			{ID: "4-4", Title: "Systèmes spécialisés", Description: "Alarme, centrale, aspirateur, domotique"},
		},
	},
	{
		ID:   "5",
		Name: "5.0 - Isolation et Étanchéité",
		Items: []Item{
			{ID: "5-1", Title: "Isolation thermique", Description: "Laine, uréthane, pare-vapeur"},
			{ID: "5-2", Title: "Insonorisation", Description: "Isolation acoustique, barres résilientes"},
			{ID: "5-3", Title: "Étanchéité à l'air", Description: "Scellement, test infiltrométrie"},
		},
	},
	{
		ID:   "6",
		Name: "6.0 - Finitions Intérieures",
		Items: []Item{
			{ID: "6-1", Title: "Gypse et plafonds", Description: "Gypse, joints, texture, plafonds suspendus"},
			{ID: "6-2", Title: "Revêtements de plancher", Description: "Bois franc, céramique, vinyle, tapis"},
			{ID: "6-3", Title: "Armoires et vanités", Description: "Cuisine, salles de bain, rangements"},
			{ID: "6-4", Title: "Peinture et finition", Description: "Apprêt, peinture, teinture, vernis"},
			{ID: "6-5", Title: "Escaliers et rampes", Description: "Escaliers, mains courantes, garde-corps"},
		},
	},
	{
		ID:   "7",
		Name: "7.0 - Aménagement Extérieur et Garage",
		Items: []Item{
			{ID: "7-1", Title: "Terrassement et pavage", Description: "Nivellement, gazon, entrée pavée/asphalte"},
			{ID: "7-2", Title: "Garage", Description: "Structure, dalle, porte, finition"},
			{ID: "7-3", Title: "Aménagement paysager", Description: "Plantation, murets, éclairage"},
			{ID: "7-4", Title: "Clôtures et portails", Description: "Clôture, portail, intimité"},
		},
	},
}

// byKey indexes every (category, item) pair by its item key.
var byKey = func() map[string]struct {
	cat  *Category
	item *Item
} {
	m := make(map[string]struct {
		cat  *Category
		item *Item
	})
	for ci := range categories {
		for ii := range categories[ci].Items {
			key := ItemKey(categories[ci].ID, categories[ci].Items[ii].ID)
			m[key] = struct {
				cat  *Category
				item *Item
			}{&categories[ci], &categories[ci].Items[ii]}
		}
	}
	return m
}()

// Categories returns the ordered work categories.
func Categories() []Category {
	out := make([]Category, len(categories))
	for i, c := range categories {
		items := make([]Item, len(c.Items))
		copy(items, c.Items)
		c.Items = items
		out[i] = c
	}
	return out
}

// ItemKey builds the quote-wide key for one priced line.
func ItemKey(categoryID, itemID string) string {
	return categoryID + KeySeparator + itemID
}

// CategoryOf extracts the category id prefix from an item key. The second
// return is false when the key has no separator.
func CategoryOf(key string) (string, bool) {
	id, _, found := strings.Cut(key, KeySeparator)
	if !found || id == "" {
		return "", false
	}
	return id, true
}

// BelongsTo reports whether key is a line of the given category.
func BelongsTo(key, categoryID string) bool {
	return strings.HasPrefix(key, categoryID+KeySeparator)
}

// Lookup resolves an item key to its category and item definitions.
func Lookup(key string) (Category, Item, bool) {
	entry, ok := byKey[key]
	if !ok {
		return Category{}, Item{}, false
	}
	return *entry.cat, *entry.item, true
}
