package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"timedock.com/timedock/auth"
	"timedock.com/timedock/core"
	qb "timedock.com/timedock/quickbooks/v1"
	"timedock.com/timedock/web/common"
)

// QuickBooksHandler exposes the connection lifecycle and the entity routes
// over one company's QuickBooks file.
type QuickBooksHandler struct {
	auth  *auth.Manager
	clock *core.Service
	log   *zap.Logger
}

func NewQuickBooksHandler(mgr *auth.Manager, clock *core.Service, log *zap.Logger) *QuickBooksHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuickBooksHandler{auth: mgr, clock: clock, log: log}
}

// RegisterPublic mounts the routes that run before any credential exists.
func (h *QuickBooksHandler) RegisterPublic(r gin.IRouter) {
	r.GET("/quickbooks/callback", h.Callback)
}

// Register mounts the tenant-scoped routes.
func (h *QuickBooksHandler) Register(r gin.IRouter) {
	r.GET("/quickbooks/connect", h.Connect)
	r.GET("/quickbooks/status", h.ConnectionStatus)
	r.POST("/quickbooks/disconnect", h.Disconnect)

	r.GET("/employees", h.ListEmployees)
	r.POST("/employees", h.CreateEmployee)
	r.GET("/employees/:id", h.GetEmployee)
	r.PUT("/employees/:id", h.UpdateEmployee)
	r.DELETE("/employees/:id", h.DeleteEmployee)

	r.POST("/clock/in", h.ClockIn)
	r.POST("/clock/out", h.ClockOut)
	r.GET("/clock/status/:employee", h.ClockStatus)

	r.POST("/timeactivities", h.RecordSession)
	r.POST("/timeactivities/search", h.SearchActivities)
}

// tenant resolves the company the request acts for: the authenticated
// claim wins, a query parameter covers unauthenticated tooling.
func tenant(c *gin.Context) string {
	if v, ok := c.Get("company_id"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return c.Query("company_id")
}

func (h *QuickBooksHandler) respondError(c *gin.Context, err error) {
	var cbErr *auth.CallbackError

	switch {
	case errors.As(err, &cbErr):
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(cbErr.Reason))
	case errors.Is(err, auth.ErrNotAuthenticated),
		errors.Is(err, auth.ErrReauthenticationRequired),
		errors.Is(err, qb.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, common.NewErrorResponse(err.Error()))
	case errors.Is(err, qb.ErrNotFound):
		c.JSON(http.StatusNotFound, common.NewErrorResponse(err.Error()))
	case errors.Is(err, core.ErrAlreadyActive),
		errors.Is(err, core.ErrNotActive),
		errors.Is(err, core.ErrEmptySession),
		errors.Is(err, qb.ErrValidation):
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error()))
	case errors.Is(err, qb.ErrConflict):
		c.JSON(http.StatusConflict, common.NewErrorResponse(err.Error()))
	default:
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse("internal error"))
	}
}

// Connect returns the authorization redirect URL for the tenant.
func (h *QuickBooksHandler) Connect(c *gin.Context) {
	companyID := tenant(c)
	if companyID == "" {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("company_id is required"))
		return
	}

	url, err := h.auth.AuthorizationURL(companyID, c.Query("user_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"url": url}))
}

// Callback completes the OAuth flow. The provider redirects here, so this
// route sits outside authentication.
func (h *QuickBooksHandler) Callback(c *gin.Context) {
	companyID, cred, err := h.auth.CompleteAuthorization(c.Request.Context(), c.Request.URL.String())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{
		"company_id": companyID,
		"realm_id":   cred.RealmID,
	}))
}

func (h *QuickBooksHandler) ConnectionStatus(c *gin.Context) {
	connected, cred, err := h.auth.Connected(c.Request.Context(), tenant(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	out := gin.H{"connected": connected}
	if connected {
		out["realm_id"] = cred.RealmID
		out["expires_at"] = cred.ExpiresAt
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(out))
}

func (h *QuickBooksHandler) Disconnect(c *gin.Context) {
	if err := h.auth.Revoke(c.Request.Context(), tenant(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"disconnected": true}))
}

func (h *QuickBooksHandler) ListEmployees(c *gin.Context) {
	employees, err := h.clock.ListEmployees(c.Request.Context(), tenant(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(employees))
}

func (h *QuickBooksHandler) GetEmployee(c *gin.Context) {
	employee, err := h.clock.GetEmployee(c.Request.Context(), tenant(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(employee))
}

func (h *QuickBooksHandler) CreateEmployee(c *gin.Context) {
	var in core.EmployeeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	employee, err := h.clock.CreateEmployee(c.Request.Context(), tenant(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, common.NewSuccessResponse(employee))
}

func (h *QuickBooksHandler) UpdateEmployee(c *gin.Context) {
	var in core.EmployeeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	employee, err := h.clock.UpdateEmployee(c.Request.Context(), tenant(c), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(employee))
}

// DeleteEmployee deactivates rather than destroys; the remote system keeps
// the record for history.
func (h *QuickBooksHandler) DeleteEmployee(c *gin.Context) {
	if err := h.clock.DeactivateEmployee(c.Request.Context(), tenant(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"deactivated": true}))
}

type clockInRequest struct {
	EmployeeRef string                `json:"employee_ref" binding:"required"`
	Start       *common.LocalDateTime `json:"start"`
	Description string                `json:"description"`
}

func (h *QuickBooksHandler) ClockIn(c *gin.Context) {
	var req clockInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	in := core.ClockInInput{EmployeeRef: req.EmployeeRef, Description: req.Description}
	if req.Start != nil {
		in.Start = req.Start.Time
	}

	activity, err := h.clock.ClockIn(c.Request.Context(), tenant(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, common.NewSuccessResponse(activity))
}

type clockOutRequest struct {
	ActivityID string                `json:"activity_id" binding:"required"`
	End        *common.LocalDateTime `json:"end"`
}

func (h *QuickBooksHandler) ClockOut(c *gin.Context) {
	var req clockOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	end := timeOrZero(req.End)
	activity, err := h.clock.ClockOut(c.Request.Context(), tenant(c), req.ActivityID, end)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(activity))
}

func (h *QuickBooksHandler) ClockStatus(c *gin.Context) {
	status, err := h.clock.Status(c.Request.Context(), tenant(c), c.Param("employee"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(status))
}

type recordSessionRequest struct {
	EmployeeRef string               `json:"employee_ref" binding:"required"`
	Start       common.LocalDateTime `json:"start" binding:"required"`
	End         common.LocalDateTime `json:"end" binding:"required"`
	Description string               `json:"description"`
}

func (h *QuickBooksHandler) RecordSession(c *gin.Context) {
	var req recordSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	activity, err := h.clock.RecordSession(c.Request.Context(), tenant(c),
		req.EmployeeRef, req.Start.Time, req.End.Time, req.Description)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, common.NewSuccessResponse(activity))
}

type searchActivitiesRequest struct {
	EmployeeRef string          `json:"employee_ref" binding:"required"`
	From        common.DateOnly `json:"from" binding:"required"`
	To          common.DateOnly `json:"to" binding:"required"`
}

func (h *QuickBooksHandler) SearchActivities(c *gin.Context) {
	var req searchActivitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	report, err := h.clock.Report(c.Request.Context(), tenant(c), req.EmployeeRef,
		req.From.Format("2006-01-02"), req.To.Format("2006-01-02"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(report))
}

func timeOrZero(t *common.LocalDateTime) time.Time {
	if t != nil {
		return t.Time
	}
	return time.Time{}
}
