package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"noctambul/internal/amqp"
	"noctambul/internal/core"
)

const journalTimeLayout = "2006-01-02 15:04"

type stockRequest struct {
	Product  string `json:"produit"`
	Quantity int64  `json:"quantite"`
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	items, err := s.ops.GetStock(r.Context())
	if err != nil {
		writeOperationError(r.Context(), w, err)
		return
	}
	type row struct {
		Product  string `json:"produit"`
		Quantity int64  `json:"quantite"`
	}
	out := make([]row, 0, len(items))
	for _, it := range items {
		out = append(out, row{Product: it.Name, Quantity: it.Quantity})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStockAdd(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "corps de requête invalide")
		return
	}
	if err := s.ops.AddProduct(r.Context(), req.Product, req.Quantity); err != nil {
		writeOperationError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("%d x %s ajouté au stock", req.Quantity, req.Product)})
}

func (s *Server) handleStockSell(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "corps de requête invalide")
		return
	}
	if err := s.ops.SellProduct(r.Context(), req.Product, req.Quantity); err != nil {
		writeOperationError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("%d x %s vendu", req.Quantity, req.Product)})
}

func (s *Server) handleStockRemove(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "corps de requête invalide")
		return
	}
	if err := s.ops.RemoveProduct(r.Context(), req.Product); err != nil {
		writeOperationError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("%s retiré du stock", req.Product)})
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	entries, err := s.ops.GetJournal(r.Context())
	if err != nil {
		writeOperationError(r.Context(), w, err)
		return
	}
	type row struct {
		ID       int64  `json:"id"`
		Action   string `json:"action"`
		Product  string `json:"produit"`
		Quantity int64  `json:"quantite"`
		Amount   int64  `json:"montant"`
		At       string `json:"date_action"`
	}
	out := make([]row, 0, len(entries))
	for _, e := range entries {
		out = append(out, row{
			ID:       e.ID,
			Action:   string(e.Action),
			Product:  e.Product,
			Quantity: e.Quantity,
			Amount:   e.Amount.Francs,
			At:       e.At.Format(journalTimeLayout),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Product  string `json:"produit"`
		Quantity int64  `json:"quantite"`
		Amount   int64  `json:"montant"`
		Date     string `json:"date"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "corps de requête invalide")
		return
	}
	p := core.Purchase{
		Product:  req.Product,
		Quantity: req.Quantity,
		Amount:   core.Money{Francs: req.Amount},
	}
	if req.Date != "" {
		d, err := core.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "date invalide, format attendu AAAA-MM-JJ")
			return
		}
		p.Date = d
	}
	if err := s.ops.RecordPurchase(r.Context(), p); err != nil {
		writeOperationError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "achat enregistré"})
}

func (s *Server) handleSale(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Date      string `json:"date"`
		Product   string `json:"produit"`
		Category  string `json:"categorie"`
		Quantity  int64  `json:"quantite"`
		UnitPrice int64  `json:"prix_unitaire"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "corps de requête invalide")
		return
	}
	d, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "date invalide, format attendu AAAA-MM-JJ")
		return
	}
	sale := core.Sale{
		Date:      d,
		Product:   req.Product,
		Category:  req.Category,
		Quantity:  req.Quantity,
		UnitPrice: core.Money{Francs: req.UnitPrice},
	}
	if err := s.ops.RecordSale(r.Context(), sale); err != nil {
		writeOperationError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "vente enregistrée"})
}

func (s *Server) handleExpense(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Date        string `json:"date"`
		Description string `json:"description"`
		Category    string `json:"categorie"`
		Amount      int64  `json:"montant"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "corps de requête invalide")
		return
	}
	d, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "date invalide, format attendu AAAA-MM-JJ")
		return
	}
	exp := core.Expense{
		Date:        d,
		Description: req.Description,
		Category:    req.Category,
		Amount:      core.Money{Francs: req.Amount},
	}
	if err := s.ops.RecordExpense(r.Context(), exp); err != nil {
		writeOperationError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "dépense enregistrée"})
}

func (s *Server) handleKiosk(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Number     int64  `json:"numero"`
		Operator   string `json:"operateur"`
		OpenedAt   string `json:"date_ouverture"`
		Balance    int64  `json:"solde"`
		Commission int64  `json:"commission"`
		Status     string `json:"statut"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "corps de requête invalide")
		return
	}
	k := core.Kiosk{
		Number:     req.Number,
		Operator:   req.Operator,
		Status:     req.Status,
		Balance:    core.Money{Francs: req.Balance},
		Commission: core.Money{Francs: req.Commission},
	}
	if req.OpenedAt != "" {
		d, err := core.ParseDate(req.OpenedAt)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "date invalide, format attendu AAAA-MM-JJ")
			return
		}
		k.OpenedAt = d
	}
	if err := s.ops.RegisterKiosk(r.Context(), k); err != nil {
		writeOperationError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("kiosque %d enregistré", req.Number)})
}

func (s *Server) handleDailyPoint(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Date       string `json:"date"`
		Kiosk      int64  `json:"kiosque"`
		Operator   string `json:"operateur"`
		Cash       int64  `json:"espece"`
		Float      int64  `json:"fond"`
		Credit     int64  `json:"credit"`
		Commission int64  `json:"commission"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "corps de requête invalide")
		return
	}
	d, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "date invalide, format attendu AAAA-MM-JJ")
		return
	}
	p := core.DailyKioskPoint{
		Date:       d,
		Kiosk:      req.Kiosk,
		Operator:   req.Operator,
		Cash:       core.Money{Francs: req.Cash},
		Float:      core.Money{Francs: req.Float},
		Credit:     core.Money{Francs: req.Credit},
		Commission: core.Money{Francs: req.Commission},
	}
	if err := s.ops.RecordDailyPoint(r.Context(), p); err != nil {
		writeOperationError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "point journalier enregistré"})
}

func (s *Server) handleRecipients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		emails, err := s.ops.ListRecipients(r.Context())
		if err != nil {
			writeOperationError(r.Context(), w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{"destinataires": emails})
	case http.MethodPost:
		var req struct {
			Emails []string `json:"emails"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "corps de requête invalide")
			return
		}
		if err := s.ops.AddRecipients(r.Context(), req.Emails); err != nil {
			writeOperationError(r.Context(), w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "destinataires ajoutés"})
	case http.MethodDelete:
		var req struct {
			Email string `json:"email"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "corps de requête invalide")
			return
		}
		// The seeded owner address always stays on the list.
		if strings.EqualFold(strings.TrimSpace(req.Email), s.ownerEmail) {
			writeError(w, http.StatusUnprocessableEntity, "le destinataire principal ne peut pas être retiré")
			return
		}
		if err := s.ops.RemoveRecipient(r.Context(), req.Email); err != nil {
			writeOperationError(r.Context(), w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "destinataire retiré"})
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSendReports(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Kind string `json:"kind"`
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "corps de requête invalide")
		return
	}
	if req.Kind == "" {
		req.Kind = amqp.JobManual
	}
	if req.Kind != amqp.JobManual && req.Kind != amqp.JobKiosques {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("type de rapport inconnu %q", req.Kind))
		return
	}
	msg := amqp.NewReportJobMessage(req.Kind)
	msg.From = req.From
	msg.To = req.To
	if err := s.reports.Request(r.Context(), msg); err != nil {
		writeOperationError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "envoi des rapports demandé"})
}

func (s *Server) handleReportZip(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	zipPath, err := s.reports.BundleStandardSet(r.Context())
	if err != nil {
		writeOperationError(r.Context(), w, err)
		return
	}
	f, err := os.Open(zipPath)
	if err != nil {
		slog.ErrorContext(r.Context(), "Could not open report archive", "path", zipPath, "error", err)
		writeError(w, http.StatusInternalServerError, "erreur interne")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(zipPath)))
	http.ServeContent(w, r, filepath.Base(zipPath), time.Now(), f)
}
