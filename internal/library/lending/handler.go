package lending

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"biblio-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service, jwtSecret []byte) {
	h := &Handler{svc: svc}

	r.POST("/loans", auth.RequireAuth(jwtSecret), h.Borrow)
	r.PATCH("/loans/:id/return", auth.RequireAuth(jwtSecret), h.Return)
}

// POST /loans
func (h *Handler) Borrow(c *gin.Context) {
	var req BorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(ErrCodeInvalidArgument, "invalid json"))
		return
	}

	userID := c.GetString(auth.CtxUserIDKey)
	idemKey := c.GetHeader("Idempotency-Key")

	res, err := h.svc.Borrow(c.Request.Context(), userID, req.ItemID, idemKey)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}

	c.Header("Location", "/loans/"+res.LoanID)
	c.JSON(http.StatusCreated, res)
}

// PATCH /loans/:id/return
func (h *Handler) Return(c *gin.Context) {
	userID := c.GetString(auth.CtxUserIDKey)
	role := c.GetString(auth.CtxRoleKey)

	res, err := h.svc.Return(c.Request.Context(), userID, role, c.Param("id"))
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// ---------- helpers ----------

type errorDTO struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorBody(code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func errorFromErr(err error) errorDTO {
	if de, ok := err.(*DomainError); ok {
		return errorBody(de.Code, de.Message)
	}
	return errorBody(ErrCodeInternal, err.Error())
}
