package items

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"biblio-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service, jwtSecret []byte) {
	h := &Handler{svc: svc}

	// public catalog
	r.GET("/items", h.List)
	r.GET("/items/borrowed-books", h.ListBorrowedBooks)
	r.GET("/items/:id", h.Get)

	// admin only
	r.POST("/items", auth.RequireAuth(jwtSecret), auth.RequireRole(auth.RoleAdmin), h.Create)
	r.PATCH("/items/:id/counts", auth.RequireAuth(jwtSecret), auth.RequireRole(auth.RoleAdmin), h.Resize)
}

func (h *Handler) List(c *gin.Context) {
	q := SearchQuery{
		Kind:   c.Query("kind"),
		Search: c.Query("search"),
	}
	if v := c.Query("available"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			q.Available = &b
		}
	}

	res, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(toHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListBorrowedBooks(c *gin.Context) {
	res, err := h.svc.ListBorrowedBooks(c.Request.Context())
	if err != nil {
		c.JSON(toHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Get(c *gin.Context) {
	res, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(toHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.Header("Location", "/items/"+res.ItemID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Resize(c *gin.Context) {
	var req ResizeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TotalCount == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totalCount must be a number >= 0"})
		return
	}

	res, err := h.svc.Resize(c.Request.Context(), c.Param("id"), *req.TotalCount)
	if err != nil {
		c.JSON(toHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}
