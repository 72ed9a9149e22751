package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-checkout/internal/coupon"
	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/payments"
)

// writeError translates the service error taxonomy into HTTP statuses:
// buyer-input rejections are 422 with the offending field group, missing
// entities 404, re-entrant submissions 409, and upstream failures 502
// with a retryable message.
func writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Msg, "group": verr.Group})
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrSubmissionInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "a submission is already being processed"})
	case errors.Is(err, coupon.ErrInvalid):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid or expired coupon", "group": domain.GroupCoupon})
	case errors.Is(err, payments.ErrCardToken):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not process card data, check the fields and try again", "group": domain.GroupPayment})
	case errors.Is(err, payments.ErrNotMounted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment form is not available, try again shortly"})
	default:
		var terr *domain.TransportError
		if errors.As(err, &terr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "a remote service is unavailable, try again"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
