// internal/quote/quote.go
package quote

import (
	"fmt"
	"time"

	"heritagebackend/internal/catalog"
	"heritagebackend/internal/pricing"
)

// DateFormat is the calendar-date layout used throughout the snapshot.
const DateFormat = "2006-01-02"

type ClientInfo struct {
	Nom        string `json:"nom"`
	Adresse    string `json:"adresse"`
	Ville      string `json:"ville"`
	CodePostal string `json:"code_postal"`
	Telephone  string `json:"telephone"`
	Courriel   string `json:"courriel"`
}

type ProjectInfo struct {
	Nom        string  `json:"nom"`
	Adresse    string  `json:"adresse"`
	Type       string  `json:"type"`
	Superficie float64 `json:"superficie"`
	Etages     int     `json:"etages"`
	DateDebut  string  `json:"date_debut"`
	Duree      string  `json:"duree"`
}

// SnapshotItem is one priced line as persisted: catalog labels plus the
// entered figures.
type SnapshotItem struct {
	Titre        string  `json:"titre"`
	Description  string  `json:"description"`
	Quantite     float64 `json:"quantite"`
	PrixUnitaire float64 `json:"prix_unitaire"`
	Montant      float64 `json:"montant"`
}

// Snapshot is the complete serialized quote state, the system's only
// interchange format. It round-trips losslessly through persistence.
type Snapshot struct {
	Numero     string                  `json:"numero"`
	Date       string                  `json:"date"`
	Client     ClientInfo              `json:"client"`
	Projet     ProjectInfo             `json:"projet"`
	Items      map[string]SnapshotItem `json:"items"`
	Taux       pricing.Rates           `json:"taux"`
	Totaux     pricing.Summary         `json:"totaux"`
	Conditions []string                `json:"conditions"`
	Exclusions []string                `json:"exclusions"`
}

// Draft is the in-progress quote, owned and passed around by the caller.
// Nothing in this package holds ambient state.
type Draft struct {
	Numero     string
	Date       time.Time
	Client     ClientInfo
	Projet     ProjectInfo
	Items      map[string]pricing.LineItem
	Taux       pricing.Rates
	Conditions []string
	Exclusions []string
}

// DefaultConditions and DefaultExclusions seed a fresh draft the way the
// quote form does.
func DefaultConditions() []string {
	return []string{
		"• Cette soumission est valide pour 30 jours",
		"• Prix sujet à changement selon les conditions du site",
		"• 50% d'acompte requis à la signature du contrat",
	}
}

func DefaultExclusions() []string {
	return []string{
		"• Décontamination (si applicable)",
		"• Mobilier et électroménagers",
		"• Aménagement paysager (sauf si spécifié)",
	}
}

// NewDraft returns an empty draft dated today with the standard conditions.
func NewDraft(now time.Time) *Draft {
	return &Draft{
		Date:       now,
		Items:      make(map[string]pricing.LineItem),
		Taux:       pricing.Rates{Profit: 0.15, Admin: 0.03, Contingency: 0.12},
		Conditions: DefaultConditions(),
		Exclusions: DefaultExclusions(),
	}
}

// BuildSnapshot freezes a draft into its persistable form: every Computed
// amount is rederived, items are labeled from the catalog, and the financial
// summary is recomputed. Item keys that do not exist in the catalog are
// rejected so an unlabelable line can never be persisted.
func BuildSnapshot(d *Draft) (Snapshot, error) {
	totals, err := pricing.Summarize(d.Items, d.Taux)
	if err != nil {
		return Snapshot{}, fmt.Errorf("summarize draft %s: %w", d.Numero, err)
	}

	items := make(map[string]SnapshotItem, len(d.Items))
	for key, li := range d.Items {
		_, def, ok := catalog.Lookup(key)
		if !ok {
			return Snapshot{}, fmt.Errorf("draft %s: unknown item key %q", d.Numero, key)
		}
		items[key] = SnapshotItem{
			Titre:        def.Title,
			Description:  def.Description,
			Quantite:     li.Quantity,
			PrixUnitaire: li.UnitPrice,
			Montant:      pricing.ComputeAmount(li),
		}
	}

	return Snapshot{
		Numero:     d.Numero,
		Date:       d.Date.Format(DateFormat),
		Client:     d.Client,
		Projet:     d.Projet,
		Items:      items,
		Taux:       d.Taux,
		Totaux:     totals,
		Conditions: append([]string(nil), d.Conditions...),
		Exclusions: append([]string(nil), d.Exclusions...),
	}, nil
}
