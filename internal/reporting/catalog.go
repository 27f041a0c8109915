// Package reporting holds the report catalog: lifecycle statuses, the
// category tree, and normalization of incoming report classifications
// (including the legacy free-form "type" values older clients send).
package reporting

import "strings"

// Report lifecycle statuses.
const (
	StatusCreated   = "Creado"
	StatusVisible   = "Visible"
	StatusVerified  = "Verificado"
	StatusInReview  = "En revisión"
	StatusRepaired  = "Reparado"
	StatusArchived  = "Archivado"
	DefaultStatus   = StatusVisible
	DefaultCategory = "Baches"
)

// Statuses lists every status in lifecycle order.
var Statuses = []string{
	StatusCreated,
	StatusVisible,
	StatusVerified,
	StatusInReview,
	StatusRepaired,
	StatusArchived,
}

// Category is a top-level report category and its allowed subcategories.
type Category struct {
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories"`
}

// Categories is the category tree. The first entry is the default.
var Categories = []Category{
	{Name: "Baches", Subcategories: []string{"Grieta", "Bache", "Bacheson", "Reparacion inconclusa"}},
	{Name: "Luminarias", Subcategories: []string{"Fallando", "Descompuesta"}},
	{Name: "Agua", Subcategories: []string{"Fuga de agua", "No hay agua"}},
	{Name: "Basura", Subcategories: []string{"Acumulacion de basura", "No paso recoleccion"}},
	{Name: "Drenaje", Subcategories: []string{"Brote de aguas negras", "Alcantarilla destapada"}},
}

// Classification is a resolved (category, subcategory) pair.
type Classification struct {
	Category    string
	Subcategory string
}

// legacyTypes maps lower-cased legacy type labels to their classification.
var legacyTypes = map[string]Classification{
	"pequeña grieta":           {"Baches", "Grieta"},
	"grieta":                   {"Baches", "Grieta"},
	"bache":                    {"Baches", "Bache"},
	"bachesón":                 {"Baches", "Bacheson"},
	"bacheson":                 {"Baches", "Bacheson"},
	"reparación inconclusa":    {"Baches", "Reparacion inconclusa"},
	"reparacion inconclusa":    {"Baches", "Reparacion inconclusa"},
	"falla":                    {"Luminarias", "Fallando"},
	"fallando":                 {"Luminarias", "Fallando"},
	"descompuesta":             {"Luminarias", "Descompuesta"},
	"fuga de agua":             {"Agua", "Fuga de agua"},
	"falta de agua":            {"Agua", "No hay agua"},
	"no hay agua":              {"Agua", "No hay agua"},
	"aguas negras":             {"Drenaje", "Brote de aguas negras"},
	"drenaje colapsado":        {"Drenaje", "Brote de aguas negras"},
	"brote de aguas negras":    {"Drenaje", "Brote de aguas negras"},
	"alcantarilla abierta":     {"Drenaje", "Alcantarilla destapada"},
	"alcantarilla destapada":   {"Drenaje", "Alcantarilla destapada"},
	"acumulación de basura":    {"Basura", "Acumulacion de basura"},
	"acumulacion de basura":    {"Basura", "Acumulacion de basura"},
	"no ha pasado recolección": {"Basura", "No paso recoleccion"},
	"no ha pasado recoleccion": {"Basura", "No paso recoleccion"},
	"no paso recoleccion":      {"Basura", "No paso recoleccion"},
}

// ValidStatus reports whether s is a known status.
func ValidStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// ValidCategory reports whether name is a known category.
func ValidCategory(name string) bool {
	return findCategory(name) != nil
}

// ValidSubcategory reports whether sub belongs to category.
func ValidSubcategory(category, sub string) bool {
	c := findCategory(category)
	if c == nil {
		return false
	}
	for _, s := range c.Subcategories {
		if s == sub {
			return true
		}
	}
	return false
}

func findCategory(name string) *Category {
	for i := range Categories {
		if Categories[i].Name == name {
			return &Categories[i]
		}
	}
	return nil
}

// ResolveLegacy maps a free-form legacy type to a classification. Unknown
// labels that are already a Baches subcategory keep it; anything else
// falls back to Baches/Grieta.
func ResolveLegacy(typ string) Classification {
	if c, ok := legacyTypes[strings.ToLower(strings.TrimSpace(typ))]; ok {
		return c
	}
	if ValidSubcategory(DefaultCategory, typ) {
		return Classification{Category: DefaultCategory, Subcategory: typ}
	}
	return Classification{Category: DefaultCategory, Subcategory: "Grieta"}
}

// Input is the classification part of a report as sent by a client.
type Input struct {
	Type        string
	Category    string
	Subcategory string
	Status      string
}

// Normalized is a validated classification ready to store. Type always
// mirrors Subcategory.
type Normalized struct {
	Category    string
	Subcategory string
	Status      string
	Type        string
}

// Normalize validates in, filling a missing category or subcategory from
// the legacy type and defaulting an unknown status to Visible. It returns
// false when the resulting category/subcategory pair is not in the catalog.
func Normalize(in Input) (Normalized, bool) {
	typ := strings.TrimSpace(in.Type)
	category := strings.TrimSpace(in.Category)
	sub := strings.TrimSpace(in.Subcategory)
	status := strings.TrimSpace(in.Status)

	if category == "" || sub == "" {
		resolved := ResolveLegacy(typ)
		if category == "" {
			category = resolved.Category
		}
		if sub == "" {
			sub = resolved.Subcategory
		}
	}

	if !ValidStatus(status) {
		status = DefaultStatus
	}
	if !ValidSubcategory(category, sub) {
		return Normalized{}, false
	}
	return Normalized{
		Category:    category,
		Subcategory: sub,
		Status:      status,
		Type:        sub,
	}, true
}
