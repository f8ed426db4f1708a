package httpgin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/identity"
	"github.com/kirinyoku/tix-ledger/internal/service/ledger"
)

type errorKind struct {
	err    error
	status int
	code   string
}

// Checked in order; the first match wins.
var errorKinds = []errorKind{
	{domain.ErrAlreadyInitialized, http.StatusConflict, "AlreadyInitialized"},
	{domain.ErrEventNotActive, http.StatusConflict, "EventNotActive"},
	{domain.ErrEventFull, http.StatusConflict, "EventFull"},
	{domain.ErrDuplicatePurchase, http.StatusConflict, "DuplicatePurchase"},
	{domain.ErrTicketAlreadyUsed, http.StatusConflict, "TicketAlreadyUsed"},
	{domain.ErrCatalogExhausted, http.StatusConflict, "CatalogExhausted"},
	{domain.ErrNotTicketOwner, http.StatusForbidden, "NotTicketOwner"},
	{domain.ErrFieldTooLong, http.StatusBadRequest, "FieldTooLong"},
	{domain.ErrNotInitialized, http.StatusNotFound, "NotInitialized"},
	{domain.ErrEventNotFound, http.StatusNotFound, "EventNotFound"},
	{domain.ErrTicketNotFound, http.StatusNotFound, "TicketNotFound"},
	{domain.ErrSignatureRequired, http.StatusUnauthorized, "SignatureRequired"},
	{identity.ErrBadSignature, http.StatusUnauthorized, "BadSignature"},
	{identity.ErrSignerMismatch, http.StatusUnauthorized, "SignerMismatch"},
	{identity.ErrMalformedEnvelope, http.StatusBadRequest, "MalformedEnvelope"},
	{identity.ErrUnknownOp, http.StatusBadRequest, "UnknownOp"},
	{ledger.ErrUnknownOp, http.StatusBadRequest, "UnknownOp"},
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			msg := k.err.Error()
			var tooLong *domain.FieldTooLongError
			if errors.As(err, &tooLong) {
				msg = tooLong.Error()
			}
			c.JSON(k.status, ErrorResponse{Error: msg, Code: k.code})
			return
		}
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: "Internal"})
}
