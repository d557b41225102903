package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"circulation/internal/models"
	"circulation/internal/payments"
	"circulation/internal/services"
)

type LibraryHandler struct {
	svc     services.LibraryService
	gateway payments.Gateway
}

func RegisterRoutes(r *gin.Engine, svc services.LibraryService, gateway payments.Gateway) {
	h := &LibraryHandler{svc: svc, gateway: gateway}

	// Catalog endpoints
	r.GET("/books", h.listBooks)
	r.POST("/books", h.addBook)
	r.GET("/books/search", h.searchBooks)

	// Lending endpoints
	r.POST("/books/:id/borrow", h.borrowBook)
	r.POST("/books/:id/return", h.returnBook)
	r.GET("/books/:id/late-fee", h.lateFee)
	r.GET("/patrons/:id/status", h.patronStatus)

	// Payment endpoints
	r.POST("/books/:id/late-fee/payment", h.payLateFees)
	r.POST("/payments/:txn/refund", h.refund)
}

// statusFor maps a service error kind onto an HTTP status.
func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindInvalidInput:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindBusinessRule:
		return http.StatusConflict
	case services.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		c.JSON(statusFor(svcErr.Kind), gin.H{"error": svcErr.Message, "kind": svcErr.Kind.String()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func bookIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return 0, false
	}
	return uint(id), true
}

func (h *LibraryHandler) listBooks(c *gin.Context) {
	books, err := h.svc.ListBooks(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

type addBookRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	ISBN        string `json:"isbn"`
	TotalCopies int    `json:"total_copies"`
}

func (h *LibraryHandler) addBook(c *gin.Context) {
	var req addBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.svc.AddBook(c.Request.Context(), req.Title, req.Author, req.ISBN, req.TotalCopies)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

type searchQuery struct {
	Term string `form:"q"`
	Type string `form:"type"`
}

func (h *LibraryHandler) searchBooks(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.svc.SearchBooks(c.Request.Context(), q.Term, q.Type)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type patronRequest struct {
	PatronID string `json:"patron_id" form:"patron_id" binding:"required"`
}

func (h *LibraryHandler) borrowBook(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	var req patronRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.svc.BorrowBook(c.Request.Context(), req.PatronID, bookID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *LibraryHandler) returnBook(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	var req patronRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.svc.ReturnBook(c.Request.Context(), req.PatronID, bookID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *LibraryHandler) lateFee(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	var req patronRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fee, err := h.svc.CalculateLateFee(c.Request.Context(), req.PatronID, bookID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fee)
}

func (h *LibraryHandler) patronStatus(c *gin.Context) {
	status, err := h.svc.PatronStatusReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *LibraryHandler) payLateFees(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	var req patronRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := h.svc.PayLateFees(c.Request.Context(), req.PatronID, bookID, h.gateway)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

type refundRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

func (h *LibraryHandler) refund(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := h.svc.RefundLateFeePayment(c.Request.Context(), c.Param("txn"), models.Cents(req.AmountCents), h.gateway)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}
