package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"finanzen/internal/core"
	"finanzen/internal/log"
	"finanzen/internal/services"
)

// maxBulkIDs caps the id lists of the bulk endpoints.
const maxBulkIDs = 1000

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParams(r)
	tq := services.TransactionQuery{
		Page:                 q.Int("page", 1),
		PerPage:              q.Int("per_page", 50),
		SortBy:               q.OneOf("sort_by", "booking_date", "booking_date", "amount", "counterpart_name", "category"),
		SortOrder:            q.OneOf("sort_order", "desc", "asc", "desc"),
		StartDate:            q.Date("start_date"),
		EndDate:              q.Date("end_date"),
		CategoryID:           q.Int64Ptr("category_id"),
		IncludeSubcategories: q.Bool("include_subcategories", true),
		UncategorizedOnly:    q.Bool("uncategorized_only", false),
		AccountID:            q.Int64Ptr("account_id"),
		AccountIBAN:          q.String("account_iban"),
		ProfileID:            q.Int64Ptr("profile_id"),
		SharedOnly:           q.Bool("shared_only", false),
		AmountType:           q.OneOf("amount_type", "all", "all", "income", "expenses"),
		Search:               q.String("search"),
	}
	if err := q.Err(); err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpList)
		return
	}

	page, err := s.svc.Transactions.List(r.Context(), tq)
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpList)
		return
	}
	NewJSONResponse().JSON(page).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpRead)
		return
	}
	detail, err := s.svc.Transactions.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpRead)
		return
	}
	NewJSONResponse().JSON(detail).Write(w)
}

type transactionPatchRequest struct {
	CategoryID *int64  `json:"category_id"`
	Notes      *string `json:"notes"`
	Tags       *string `json:"tags"`
	IsShared   *bool   `json:"is_shared"`
}

func (s *Server) handlePatchTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpUpdate)
		return
	}
	var req transactionPatchRequest
	fields, err := DecodeJSONFields(w, r, &req)
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpUpdate)
		return
	}

	patch := services.TransactionPatch{
		CategoryID: req.CategoryID,
		Notes:      sanitizePtr(req.Notes),
		Tags:       sanitizePtr(req.Tags),
		IsShared:   req.IsShared,
	}
	if isNull(fields, "category_id") {
		none := int64(0)
		patch.CategoryID = &none
	}

	tx, err := s.svc.Transactions.Patch(r.Context(), id, patch)
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpUpdate)
		return
	}
	NewJSONResponse().JSON(tx).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, err, log.ComponentSplit, log.OpDelete)
		return
	}
	if err := s.svc.Splits.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err, log.ComponentSplit, log.OpDelete)
		return
	}
	NewJSONResponse().Message("Transaktion gelöscht").Write(w)
}

type splitRequest struct {
	Splits []services.SplitPart `json:"splits"`
}

func (s *Server) handleSplitTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, err, log.ComponentSplit, log.OpSplit)
		return
	}
	var req splitRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, log.ComponentSplit, log.OpSplit)
		return
	}
	for i := range req.Splits {
		req.Splits[i].Notes = sanitizeInput(req.Splits[i].Notes)
	}

	children, err := s.svc.Splits.Split(r.Context(), id, req.Splits)
	if err != nil {
		s.writeError(w, r, err, log.ComponentSplit, log.OpSplit)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).JSON(children).Write(w)
}

type bulkCategorizeRequest struct {
	TransactionIDs []int64 `json:"transaction_ids"`
	CategoryID     *int64  `json:"category_id"`
}

func (s *Server) handleBulkCategorize(w http.ResponseWriter, r *http.Request) {
	var req bulkCategorizeRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpUpdate)
		return
	}
	if err := checkBulkIDs(req.TransactionIDs); err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpUpdate)
		return
	}
	var categoryID int64
	if req.CategoryID != nil {
		categoryID = *req.CategoryID
	}

	n, err := s.svc.Transactions.BulkCategorize(r.Context(), req.TransactionIDs, categoryID)
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpUpdate)
		return
	}
	NewJSONResponse().Message(formatInt(n)+" Transaktionen aktualisiert", "updated_count", n).Write(w)
}

type bulkSharedRequest struct {
	TransactionIDs []int64 `json:"transaction_ids"`
	IsShared       bool    `json:"is_shared"`
}

func (s *Server) handleBulkShared(w http.ResponseWriter, r *http.Request) {
	var req bulkSharedRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpUpdate)
		return
	}
	if err := checkBulkIDs(req.TransactionIDs); err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpUpdate)
		return
	}

	n, err := s.svc.Transactions.BulkShared(r.Context(), req.TransactionIDs, req.IsShared)
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpUpdate)
		return
	}
	NewJSONResponse().Message(formatInt(n)+" Transaktionen aktualisiert", "updated_count", n).Write(w)
}

func checkBulkIDs(ids []int64) error {
	if len(ids) == 0 {
		return core.Invalid("transaction_ids", "must not be empty")
	}
	if len(ids) > maxBulkIDs {
		return core.Invalid("transaction_ids", "at most %d ids per request", maxBulkIDs)
	}
	return nil
}

type manualEntryRequest struct {
	BookingDate core.Date       `json:"booking_date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CategoryID  *int64          `json:"category_id"`
	Notes       string          `json:"notes"`
}

func (s *Server) handleCreateManual(w http.ResponseWriter, r *http.Request) {
	var req manualEntryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpCreate)
		return
	}
	tx, err := s.svc.Transactions.CreateManual(r.Context(), services.ManualEntry{
		BookingDate: req.BookingDate,
		Amount:      req.Amount,
		Description: sanitizeInput(req.Description),
		CategoryID:  req.CategoryID,
		Notes:       sanitizeInput(req.Notes),
	})
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpCreate)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).JSON(tx).Write(w)
}
