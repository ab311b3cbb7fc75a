package v1

import (
	"errors"
	"net/http"

	"github.com/sefa-b/go-bill-ledger/internal/api/middleware"
	"github.com/sefa-b/go-bill-ledger/internal/domain"
	"github.com/sefa-b/go-bill-ledger/internal/utils"
)

// billListResponse wraps every bill listing.
type billListResponse struct {
	Bills []*domain.BillResponse `json:"bills"`
	Total int                    `json:"total"`
}

// billAcceptedResponse is returned when a bill is created.
type billAcceptedResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// handleListBills handles listing every bill.
func (r *Router) handleListBills(w http.ResponseWriter, req *http.Request) {
	bills, err := r.services.Bill.ListAll(req.Context())
	r.writeBillList(w, req, bills, err)
}

// handleCreateBill handles recording a bill for the user and transaction in the path.
func (r *Router) handleCreateBill(w http.ResponseWriter, req *http.Request) {
	userID := req.PathValue("userID")
	transactionID := req.PathValue("transactionID")

	handler := middleware.ValidateJSON(func(w http.ResponseWriter, req *http.Request, body *domain.CreateBillRequest) {
		bill, err := r.services.Bill.Create(req.Context(), userID, transactionID, body)
		if err != nil {
			writeServiceError(w, req, err, "User or transaction not found")
			return
		}

		id := bill.ID.String()
		w.Header().Set("Location", "/api/v1/bills/"+id)
		writeJSON(w, http.StatusAccepted, billAcceptedResponse{ID: id, Message: "bill accepted"})
	}, middleware.AllowUnknownFields())

	handler.ServeHTTP(w, req)
}

// handleGetBill handles getting a specific bill by ID.
func (r *Router) handleGetBill(w http.ResponseWriter, req *http.Request) {
	bill, err := r.services.Bill.GetByID(req.Context(), req.PathValue("id"))
	if err != nil {
		writeServiceError(w, req, err, "Bill not found")
		return
	}

	writeJSON(w, http.StatusOK, bill)
}

// handleUpdateBill handles a partial update of a bill. A bill view from GET is
// accepted as a body; read-only fields in it are ignored.
func (r *Router) handleUpdateBill(w http.ResponseWriter, req *http.Request) {
	billID := req.PathValue("id")

	handler := middleware.ValidateJSON(func(w http.ResponseWriter, req *http.Request, body *domain.UpdateBillRequest) {
		bill, err := r.services.Bill.Update(req.Context(), billID, body)
		if err != nil {
			writeServiceError(w, req, err, "Bill not found")
			return
		}

		writeJSON(w, http.StatusOK, bill)
	}, middleware.AllowUnknownFields())

	handler.ServeHTTP(w, req)
}

// handleDeleteBill handles deleting a bill.
func (r *Router) handleDeleteBill(w http.ResponseWriter, req *http.Request) {
	if err := r.services.Bill.Delete(req.Context(), req.PathValue("id")); err != nil {
		writeServiceError(w, req, err, "Bill not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleListBillsByUser handles listing the bills of a user.
func (r *Router) handleListBillsByUser(w http.ResponseWriter, req *http.Request) {
	bills, err := r.services.Bill.ListByUser(req.Context(), req.PathValue("userID"))
	r.writeBillList(w, req, bills, err)
}

// handleListBillsByUserAndTransaction handles listing the bills of a user for one transaction.
func (r *Router) handleListBillsByUserAndTransaction(w http.ResponseWriter, req *http.Request) {
	bills, err := r.services.Bill.ListByUserAndTransaction(req.Context(), req.PathValue("userID"), req.PathValue("transactionID"))
	r.writeBillList(w, req, bills, err)
}

// handleListIncomeByUser handles listing the income bills of a user.
func (r *Router) handleListIncomeByUser(w http.ResponseWriter, req *http.Request) {
	bills, err := r.services.Bill.ListIncomeByUser(req.Context(), req.PathValue("userID"))
	r.writeBillList(w, req, bills, err)
}

// handleListExpenseByUser handles listing the expense bills of a user.
func (r *Router) handleListExpenseByUser(w http.ResponseWriter, req *http.Request) {
	bills, err := r.services.Bill.ListExpenseByUser(req.Context(), req.PathValue("userID"))
	r.writeBillList(w, req, bills, err)
}

func (r *Router) writeBillList(w http.ResponseWriter, req *http.Request, bills []*domain.BillResponse, err error) {
	if err != nil {
		writeServiceError(w, req, err, "Not found")
		return
	}
	if bills == nil {
		bills = []*domain.BillResponse{}
	}

	writeJSON(w, http.StatusOK, billListResponse{Bills: bills, Total: len(bills)})
}

// writeServiceError maps service errors onto HTTP statuses. Unclassified
// errors are logged and hidden behind a 500.
func writeServiceError(w http.ResponseWriter, req *http.Request, err error, notFoundMessage string) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMessage)
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "Bill was modified concurrently, retry with fresh data")
	default:
		utils.Error("bill request failed",
			"request_id", middleware.RequestIDFromContext(req.Context()),
			"method", req.Method,
			"path", req.URL.Path,
			"error", err.Error(),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
