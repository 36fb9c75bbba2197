package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kontor/backend/internal/application/taxexport"
)

// ExportIDHeader carries the archive record id of a generated export
const ExportIDHeader = "X-Export-ID"

// ExportHandler handles DATEV and ELSTER exports
type ExportHandler struct {
	BaseHandler
	exportService *taxexport.Service
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(exportService *taxexport.Service) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// RegisterRoutes registers the export routes
func (h *ExportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/exports")
	g.GET("", h.List)
	g.POST("/datev", h.DATEV)
	g.POST("/elster", h.ELSTER)
	g.GET("/vat-summary", h.VATSummary)
	g.GET("/:id/download", h.Download)
}

// DATEV handles POST /exports/datev and returns the Buchungsstapel CSV
func (h *ExportHandler) DATEV(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	var req taxexport.DATEVRequest
	if !h.bindJSON(c, &req) {
		return
	}
	file, err := h.exportService.DATEV(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.sendExport(c, file)
}

// ELSTER handles POST /exports/elster and returns the UStVA XML
func (h *ExportHandler) ELSTER(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	var req taxexport.ELSTERRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	file, err := h.exportService.ELSTER(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.sendExport(c, file)
}

func (h *ExportHandler) sendExport(c *gin.Context, file *taxexport.ExportFile) {
	c.Header(ExportIDHeader, file.Record.ID.String())
	h.File(c, file.FileName, file.ContentType, file.Data)
}

// VATSummary handles GET /exports/vat-summary?from=&to=
func (h *ExportHandler) VATSummary(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req taxexport.SummaryRequest
	if !h.bindQuery(c, &req) {
		return
	}
	resp, err := h.exportService.VATSummary(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List handles GET /exports
func (h *ExportHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var filter taxexport.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	records, total, err := h.exportService.ListExports(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, records, total, filter.Page, filter.PageSize)
}

// Download handles GET /exports/:id/download with a short-lived URL
func (h *ExportHandler) Download(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	resp, err := h.exportService.DownloadExport(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
