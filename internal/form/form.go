// internal/form/form.go
package form

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"heritagebackend/internal/catalog"
	"heritagebackend/internal/config"
	"heritagebackend/internal/data"
	"heritagebackend/internal/ledger"
	"heritagebackend/internal/logger"
	"heritagebackend/internal/middleware"
	"heritagebackend/internal/pricing"
	"heritagebackend/internal/quote"
)

// Markup rate bounds enforced at this input boundary. The pricing engine
// itself accepts any non-negative fraction.
const (
	maxProfitRate      = 0.50
	maxAdminRate       = 0.10
	maxContingencyRate = 0.25
)

// Handler carries the storage collaborators the quote endpoints need.
type Handler struct {
	Repo    *data.QuoteRepository
	Sibling *data.SiblingStore
}

func NewHandler(repo *data.QuoteRepository, sibling *data.SiblingStore) *Handler {
	return &Handler{Repo: repo, Sibling: sibling}
}

// lineItemInput is one submitted priced line. Manuel selects the
// manual-override mode in which Montant is taken as entered instead of
// being derived from quantity × unit price.
type lineItemInput struct {
	Quantite     float64 `json:"quantite"`
	PrixUnitaire float64 `json:"prix_unitaire"`
	Montant      float64 `json:"montant"`
	Manuel       bool    `json:"manuel,omitempty"`
}

// quoteSubmission is the JSON body of a quote save. Numero is empty for a
// new quote; a fresh number is minted in that case.
type quoteSubmission struct {
	Numero     string                   `json:"numero,omitempty"`
	Date       string                   `json:"date,omitempty"`
	Client     quote.ClientInfo         `json:"client"`
	Projet     quote.ProjectInfo        `json:"projet"`
	Items      map[string]lineItemInput `json:"items"`
	Taux       pricing.Rates            `json:"taux"`
	Conditions []string                 `json:"conditions,omitempty"`
	Exclusions []string                 `json:"exclusions,omitempty"`
}

// submitResponse is what a successful save returns: everything the form
// needs to show the result and hand the share link out.
type submitResponse struct {
	Numero     string          `json:"numero"`
	Token      string          `json:"token"`
	LienPublic string          `json:"lien_public"`
	Totaux     pricing.Summary `json:"totaux"`
}

// SubmitQuoteHandler prices a submitted quote and persists it: mint a number
// if the draft has none, rebuild every computed amount, store the snapshot,
// and return the fresh access token with the financial breakdown.
func (h *Handler) SubmitQuoteHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		middleware.WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "POST required")
		return
	}

	var sub quoteSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		logger.LogHTTPError(r, http.StatusBadRequest, err)
		middleware.WriteError(w, r, http.StatusBadRequest, "invalid_json", "request body is not a valid quote submission")
		return
	}

	draft, err := draftFromSubmission(&sub)
	if err != nil {
		logger.LogHTTPError(r, http.StatusBadRequest, err)
		middleware.WriteError(w, r, http.StatusBadRequest, "invalid_submission", err.Error())
		return
	}

	if draft.Numero == "" {
		numero, err := ledger.NextNumber(h.Repo, h.Sibling, draft.Date.Year())
		if err != nil {
			logger.LogHTTPError(r, http.StatusServiceUnavailable, err)
			middleware.WriteError(w, r, http.StatusServiceUnavailable, "numbering_unavailable", "could not mint a quote number")
			return
		}
		draft.Numero = numero
	}

	snap, err := quote.BuildSnapshot(draft)
	if err != nil {
		logger.LogHTTPError(r, http.StatusBadRequest, err)
		middleware.WriteError(w, r, http.StatusBadRequest, "invalid_quote", err.Error())
		return
	}

	token, err := h.Repo.Upsert(snap)
	if err != nil {
		logger.LogHTTPError(r, http.StatusInternalServerError, err)
		middleware.WriteError(w, r, http.StatusInternalServerError, "save_failed", "quote could not be saved")
		return
	}

	rec, err := h.Repo.GetByNumero(snap.Numero)
	if err != nil {
		logger.LogHTTPError(r, http.StatusInternalServerError, err)
		middleware.WriteError(w, r, http.StatusInternalServerError, "save_failed", "saved quote could not be read back")
		return
	}

	logger.LogInfo("Quote %s saved (total $%.2f)", snap.Numero, snap.Totaux.GrandTotal)
	middleware.WriteJSON(w, r, submitResponse{
		Numero:     snap.Numero,
		Token:      token,
		LienPublic: rec.PublicLink,
		Totaux:     snap.Totaux,
	})
}

// GetQuoteHandler serves a persisted snapshot, looked up by quote number or
// by access token (shared read-only link resolution).
func (h *Handler) GetQuoteHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		middleware.WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "GET required")
		return
	}

	numero := r.URL.Query().Get("numero")
	token := r.URL.Query().Get("token")

	var rec *data.QuoteRecord
	var err error
	switch {
	case numero != "":
		rec, err = h.Repo.GetByNumero(numero)
	case token != "":
		rec, err = h.Repo.GetByToken(token)
	default:
		middleware.WriteError(w, r, http.StatusBadRequest, "missing_parameter", "numero or token is required")
		return
	}

	if errors.Is(err, data.ErrNotFound) {
		middleware.WriteError(w, r, http.StatusNotFound, "not_found", "no quote for that reference")
		return
	}
	if err != nil {
		logger.LogHTTPError(r, http.StatusInternalServerError, err)
		middleware.WriteError(w, r, http.StatusInternalServerError, "lookup_failed", "quote could not be loaded")
		return
	}

	middleware.WriteJSON(w, r, rec.Snapshot)
}

// CatalogHandler serves the static work catalog the quote form renders.
func (h *Handler) CatalogHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		middleware.WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "GET required")
		return
	}
	middleware.WriteJSON(w, r, catalog.Categories())
}

// CompanyHandler serves the company identity block external renderers stamp
// onto the quote header.
func (h *Handler) CompanyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		middleware.WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "GET required")
		return
	}
	middleware.WriteJSON(w, r, config.Company())
}

// draftFromSubmission validates a submission and produces the caller-owned
// draft the core operates on. Quantities and prices are clamped non-negative
// here; the pricing engine does not re-validate.
func draftFromSubmission(sub *quoteSubmission) (*quote.Draft, error) {
	if err := checkRates(sub.Taux); err != nil {
		return nil, err
	}

	date := time.Now()
	if sub.Date != "" {
		parsed, err := time.Parse(quote.DateFormat, sub.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", sub.Date)
		}
		date = parsed
	}

	draft := quote.NewDraft(date)
	draft.Numero = sub.Numero
	draft.Client = sub.Client
	draft.Projet = sub.Projet
	draft.Taux = sub.Taux
	if sub.Conditions != nil {
		draft.Conditions = sub.Conditions
	}
	if sub.Exclusions != nil {
		draft.Exclusions = sub.Exclusions
	}

	for key, in := range sub.Items {
		if _, _, ok := catalog.Lookup(key); !ok {
			return nil, fmt.Errorf("unknown item key %q", key)
		}
		li := pricing.LineItem{
			Quantity:  clampNonNegative(in.Quantite),
			UnitPrice: clampNonNegative(in.PrixUnitaire),
			Amount:    clampNonNegative(in.Montant),
			Mode:      pricing.Computed,
		}
		if in.Manuel {
			li.Mode = pricing.ManualOverride
		}
		draft.Items[key] = li
	}

	return draft, nil
}

func checkRates(taux pricing.Rates) error {
	if taux.Profit < 0 || taux.Profit > maxProfitRate {
		return fmt.Errorf("profit rate %.4f out of range [0, %.2f]", taux.Profit, maxProfitRate)
	}
	if taux.Admin < 0 || taux.Admin > maxAdminRate {
		return fmt.Errorf("admin rate %.4f out of range [0, %.2f]", taux.Admin, maxAdminRate)
	}
	if taux.Contingency < 0 || taux.Contingency > maxContingencyRate {
		return fmt.Errorf("contingency rate %.4f out of range [0, %.2f]", taux.Contingency, maxContingencyRate)
	}
	return nil
}

func clampNonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}
