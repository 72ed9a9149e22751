package httpserver

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-checkout/internal/checkout"
	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/payments"
	"storefront-checkout/internal/repository/session"
)

type sessionHandler struct {
	svc    *checkout.Service
	logger *log.Logger
}

type openSessionRequest struct {
	CustomerID    string `json:"customerId"`
	PreferenceKey string `json:"preferenceKey"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
}

func (h *sessionHandler) open(c *gin.Context) {
	var req openSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	v, err := h.svc.Open(c.Request.Context(), session.CreateSessionInput{
		CustomerID:    req.CustomerID,
		PreferenceKey: req.PreferenceKey,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *sessionHandler) get(c *gin.Context) {
	v, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *sessionHandler) addLine(c *gin.Context) {
	var req checkout.AddLineInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	v, err := h.svc.AddLine(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type updateLineRequest struct {
	Quantity int `json:"quantity"`
}

func (h *sessionHandler) updateLine(c *gin.Context) {
	var req updateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	v, err := h.svc.UpdateLineQuantity(c.Request.Context(), c.Param("id"), c.Param("lineId"), req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *sessionHandler) removeLine(c *gin.Context) {
	v, err := h.svc.RemoveLine(c.Request.Context(), c.Param("id"), c.Param("lineId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *sessionHandler) clearLines(c *gin.Context) {
	v, err := h.svc.ClearLines(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *sessionHandler) setIdentity(c *gin.Context) {
	var req domain.BuyerIdentity
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	v, err := h.svc.SetIdentity(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *sessionHandler) setAddress(c *gin.Context) {
	var req domain.ShippingAddress
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	v, err := h.svc.SetAddress(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type postalCodeRequest struct {
	PostalCode string `json:"postalCode" binding:"required"`
}

func (h *sessionHandler) lookupAddress(c *gin.Context) {
	var req postalCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "postalCode is required"})
		return
	}

	v, err := h.svc.AutofillAddress(c.Request.Context(), c.Param("id"), req.PostalCode)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *sessionHandler) requestQuotes(c *gin.Context) {
	var req postalCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "postalCode is required"})
		return
	}

	v, err := h.svc.RequestQuotes(c.Request.Context(), c.Param("id"), req.PostalCode)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type selectQuoteRequest struct {
	ServiceID string `json:"serviceId" binding:"required"`
}

func (h *sessionHandler) selectQuote(c *gin.Context) {
	var req selectQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "serviceId is required"})
		return
	}

	v, err := h.svc.SelectQuote(c.Request.Context(), c.Param("id"), req.ServiceID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type applyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *sessionHandler) applyCoupon(c *gin.Context) {
	var req applyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	v, err := h.svc.ApplyCoupon(c.Request.Context(), c.Param("id"), req.Code)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *sessionHandler) removeCoupon(c *gin.Context) {
	v, err := h.svc.RemoveCoupon(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *sessionHandler) payInstant(c *gin.Context) {
	ref, err := h.svc.PayInstant(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ref)
}

type cardPaymentRequest struct {
	CardNumber   string `json:"cardNumber" binding:"required"`
	HolderName   string `json:"holderName" binding:"required"`
	ExpMonth     string `json:"expMonth" binding:"required"`
	ExpYear      string `json:"expYear" binding:"required"`
	CVV          string `json:"cvv" binding:"required"`
	TaxID        string `json:"taxId"`
	Installments int    `json:"installments"`
	IssuerID     string `json:"issuerId"`
}

func (h *sessionHandler) payCard(c *gin.Context) {
	var req cardPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "card fields are required"})
		return
	}
	if req.Installments < 1 {
		req.Installments = 1
	}

	out, err := h.svc.PayCard(c.Request.Context(), c.Param("id"), payments.CardInput{
		Card: payments.CardDetails{
			Number:     req.CardNumber,
			HolderName: req.HolderName,
			ExpMonth:   req.ExpMonth,
			ExpYear:    req.ExpYear,
			CVV:        req.CVV,
			TaxID:      req.TaxID,
		},
		Installments: req.Installments,
		IssuerID:     req.IssuerID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	// A decline is a routed outcome, not a transport failure.
	c.JSON(http.StatusOK, out)
}
