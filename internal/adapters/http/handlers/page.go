package handlers

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-generator/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-generator/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-generator/internal/app"
	"github.com/jsamuelsen/quote-generator/internal/domain"
	"github.com/jsamuelsen/quote-generator/internal/platform/config"
)

// Page messages.
const (
	MsgQuoteAdded      = "New quote added successfully!"
	MsgQuoteIncomplete = "Both quote text and category are required to add a new quote."
	MsgImportDone      = "Quotes imported successfully!"
	MsgImportFailed    = "Import failed: the file must be a JSON array of quotes with text and category."
	MsgFilterFailed    = "The category filter could not be saved."
)

const pageTemplate = "index.html"

//go:embed templates/*.html
var templateFS embed.FS

// PageTemplate parses the embedded page templates for engine.SetHTMLTemplate.
func PageTemplate() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
}

// PageHandler serves the HTML page and its form posts. Every post redirects
// back to / so a reload never resubmits.
type PageHandler struct {
	service  *app.QuoteService
	notifier *app.Notifier
	flashes  *app.Flashes
}

// NewPageHandler creates the page handler.
func NewPageHandler(service *app.QuoteService, notifier *app.Notifier, flashes *app.Flashes) *PageHandler {
	if notifier == nil {
		notifier = app.NewNotifier(nil)
	}

	return &PageHandler{service: service, notifier: notifier, flashes: flashes}
}

type pageData struct {
	Display  dto.DisplayResponse
	Options  []string
	Selected string
	Notice   *dto.NotificationResponse
	Flash    *app.Flash
	Count    int
}

// Index handles GET /. It restores the session's last viewed quote.
func (h *PageHandler) Index(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := middleware.GetSessionID(c)

	_, selected := h.service.Categories(ctx)

	data := pageData{
		Display:  dto.NewDisplayResponse(h.service.CurrentQuote(ctx, sessionID)),
		Options:  h.service.CategoryOptions(),
		Selected: selected,
		Count:    len(h.service.Quotes(domain.AllCategories)),
	}

	if n := dto.NewNotificationResponse(h.notifier.Current()); n.Active {
		data.Notice = &n
	}

	if h.flashes != nil {
		if f, ok := h.flashes.Pop(ctx, sessionID); ok {
			data.Flash = &f
		}
	}

	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, pageTemplate, data)
}

// NewQuote handles POST /ui/random.
func (h *PageHandler) NewQuote(c *gin.Context) {
	h.service.RandomQuote(c.Request.Context(), middleware.GetSessionID(c), "")
	h.redirect(c)
}

// Filter handles POST /ui/filter and shows a quote from the new selection.
func (h *PageHandler) Filter(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := middleware.GetSessionID(c)

	var req dto.SelectCategoryRequest
	if err := dto.BindFormAndValidate(c, &req); err != nil {
		h.flash(c, app.FlashError, MsgFilterFailed)
		h.redirect(c)

		return
	}

	selected, err := h.service.SetFilter(ctx, req.Category)
	if err != nil {
		h.flash(c, app.FlashError, MsgFilterFailed)
		h.redirect(c)

		return
	}

	h.service.RandomQuote(ctx, sessionID, selected)
	h.redirect(c)
}

// AddQuote handles POST /ui/quotes.
func (h *PageHandler) AddQuote(c *gin.Context) {
	var req dto.CreateQuoteRequest
	if err := dto.BindFormAndValidate(c, &req); err != nil {
		h.flash(c, app.FlashError, MsgQuoteIncomplete)
		h.redirect(c)

		return
	}

	if _, _, err := h.service.SubmitQuote(c.Request.Context(), middleware.GetSessionID(c), req.Text, req.Category); err != nil {
		msg := MsgQuoteIncomplete
		if !domain.IsValidation(err) {
			msg = "The quote could not be saved."
		}

		h.flash(c, app.FlashError, msg)
		h.redirect(c)

		return
	}

	h.flash(c, app.FlashSuccess, MsgQuoteAdded)
	h.redirect(c)
}

// Import handles POST /ui/import. A rejected file leaves the quotes untouched.
func (h *PageHandler) Import(c *gin.Context) {
	data, err := readImportPayload(c)
	if err != nil {
		h.flash(c, app.FlashError, MsgImportFailed)
		h.redirect(c)

		return
	}

	res, err := h.service.Import(c.Request.Context(), data)
	if err != nil {
		h.flash(c, app.FlashError, MsgImportFailed)
		h.redirect(c)

		return
	}

	h.flash(c, app.FlashSuccess, fmt.Sprintf("%s (%d added)", MsgImportDone, res.Imported))
	h.redirect(c)
}

// RegisterRoutes registers the page routes on rg. Form posts that change
// stored state require editor permissions when auth is enabled, matching
// the API routes they mirror.
func (h *PageHandler) RegisterRoutes(rg *gin.RouterGroup, auth *config.AuthConfig) {
	editor := middleware.RequireEditor(auth)

	rg.GET("/", h.Index)

	ui := rg.Group("/ui")
	ui.POST("/random", h.NewQuote)
	ui.POST("/filter", editor, h.Filter)
	ui.POST("/quotes", editor, h.AddQuote)
	ui.POST("/import", editor, h.Import)
}

func (h *PageHandler) flash(c *gin.Context, kind app.FlashKind, msg string) {
	if h.flashes == nil {
		return
	}

	h.flashes.Set(c.Request.Context(), middleware.GetSessionID(c), app.Flash{Kind: kind, Message: msg})
}

func (h *PageHandler) redirect(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/")
}
