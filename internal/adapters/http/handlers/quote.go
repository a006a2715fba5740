package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-generator/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-generator/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-generator/internal/app"
	"github.com/jsamuelsen/quote-generator/internal/domain"
	"github.com/jsamuelsen/quote-generator/internal/platform/config"
	"github.com/jsamuelsen/quote-generator/internal/platform/logging"
)

// ExportFilename is the download name of the exported quote list.
const ExportFilename = "quotes.json"

// Syncer runs one sync cycle on demand.
type Syncer interface {
	SyncNow(ctx context.Context) (app.SyncResult, error)
}

// QuoteHandler serves the JSON API under /api/v1.
type QuoteHandler struct {
	service  *app.QuoteService
	syncer   Syncer
	notifier *app.Notifier
}

// NewQuoteHandler creates the API handler. A nil syncer makes POST /sync
// report the service as unavailable.
func NewQuoteHandler(service *app.QuoteService, syncer Syncer, notifier *app.Notifier) *QuoteHandler {
	if notifier == nil {
		notifier = app.NewNotifier(nil)
	}

	return &QuoteHandler{
		service:  service,
		syncer:   syncer,
		notifier: notifier,
	}
}

// ListQuotes handles GET /api/v1/quotes.
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	var req dto.ListQuotesRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		dto.RespondBindError(c, err)
		return
	}

	category := req.Category
	if category == "" {
		category = domain.AllCategories
	}

	offset := 0

	cursor, err := req.DecodeCursor()
	switch {
	case errors.Is(err, dto.ErrNoCursor):
	case err != nil || cursor.Category != category:
		dto.AbortWithErrorCode(c, dto.ErrorCodeBadRequest, dto.ErrInvalidCursor.Error())
		return
	default:
		offset = cursor.Offset
	}

	quotes := dto.NewQuoteResponses(h.service.Quotes(category))

	c.JSON(http.StatusOK, dto.Paginate(quotes, offset, req.GetLimit(), category))
}

// CreateQuote handles POST /api/v1/quotes.
func (h *QuoteHandler) CreateQuote(c *gin.Context) {
	var req dto.CreateQuoteRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.RespondBindError(c, err)
		return
	}

	q, display, err := h.service.SubmitQuote(c.Request.Context(), middleware.GetSessionID(c), req.Text, req.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.CreateQuoteResponse{
		Quote:   dto.NewQuoteResponse(q),
		Display: dto.NewDisplayResponse(display),
	})
}

// RandomQuote handles GET /api/v1/quotes/random. Without a category query
// the persisted selection applies.
func (h *QuoteHandler) RandomQuote(c *gin.Context) {
	display := h.service.RandomQuote(c.Request.Context(), middleware.GetSessionID(c), strings.TrimSpace(c.Query("category")))
	c.JSON(http.StatusOK, dto.NewDisplayResponse(display))
}

// CurrentQuote handles GET /api/v1/quotes/current.
func (h *QuoteHandler) CurrentQuote(c *gin.Context) {
	display := h.service.CurrentQuote(c.Request.Context(), middleware.GetSessionID(c))
	c.JSON(http.StatusOK, dto.NewDisplayResponse(display))
}

// ExportQuotes handles GET /api/v1/quotes/export.
func (h *QuoteHandler) ExportQuotes(c *gin.Context) {
	data, err := h.service.Export(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ExportFilename))
	c.Data(http.StatusOK, "application/json", data)
}

// ImportQuotes handles POST /api/v1/quotes/import. The payload is either the
// raw JSON body or a multipart "file" field.
func (h *QuoteHandler) ImportQuotes(c *gin.Context) {
	data, err := readImportPayload(c)
	if err != nil {
		dto.AbortWithErrorCode(c, dto.ErrorCodeBadRequest, err.Error())
		return
	}

	res, err := h.service.Import(c.Request.Context(), data)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ImportResponse{Imported: res.Imported, Total: res.Total})
}

// ListCategories handles GET /api/v1/categories.
func (h *QuoteHandler) ListCategories(c *gin.Context) {
	categories, selected := h.service.Categories(c.Request.Context())

	c.JSON(http.StatusOK, dto.CategoriesResponse{
		Categories: categories,
		Options:    h.service.CategoryOptions(),
		Selected:   selected,
	})
}

// SelectCategory handles PUT /api/v1/categories/selected.
func (h *QuoteHandler) SelectCategory(c *gin.Context) {
	var req dto.SelectCategoryRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.RespondBindError(c, err)
		return
	}

	selected, err := h.service.SetFilter(c.Request.Context(), req.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	categories, _ := h.service.Categories(c.Request.Context())

	c.JSON(http.StatusOK, dto.CategoriesResponse{
		Categories: categories,
		Options:    h.service.CategoryOptions(),
		Selected:   selected,
	})
}

// Sync handles POST /api/v1/sync. A failed cycle is still a 200: the caller
// asked for a cycle and gets its outcome.
func (h *QuoteHandler) Sync(c *gin.Context) {
	if h.syncer == nil {
		dto.HandleError(c, domain.NewUnavailableError("sync", "sync is disabled"))
		return
	}

	res, err := h.syncer.SyncNow(c.Request.Context())
	if err != nil {
		logging.FromContext(c.Request.Context()).InfoContext(c.Request.Context(), "manual sync failed",
			slog.Any("error", err),
		)
	}

	c.JSON(http.StatusOK, dto.NewSyncResponse(res))
}

// CurrentNotification handles GET /api/v1/notifications.
func (h *QuoteHandler) CurrentNotification(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewNotificationResponse(h.notifier.Current()))
}

// RegisterRoutes registers the API routes on rg. Mutating routes require
// editor permissions when auth is enabled.
func (h *QuoteHandler) RegisterRoutes(rg *gin.RouterGroup, auth *config.AuthConfig) {
	editor := middleware.RequireEditor(auth)

	quotes := rg.Group("/quotes")
	quotes.GET("", h.ListQuotes)
	quotes.POST("", editor, h.CreateQuote)
	quotes.GET("/random", h.RandomQuote)
	quotes.GET("/current", h.CurrentQuote)
	quotes.GET("/export", h.ExportQuotes)
	quotes.POST("/import", editor, h.ImportQuotes)

	rg.GET("/categories", h.ListCategories)
	rg.PUT("/categories/selected", editor, h.SelectCategory)
	rg.POST("/sync", editor, h.Sync)
	rg.GET("/notifications", h.CurrentNotification)
}

// readImportPayload returns the multipart "file" contents when the request
// is a form upload, otherwise the raw body.
func readImportPayload(c *gin.Context) ([]byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("reading upload: %w", err)
		}

		return readUpload(fh)
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	return data, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}

	return data, nil
}
