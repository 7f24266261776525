package view

import (
	"log/slog"
	"net/http"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// Responder renders pages with the per-request session context filled in.
type Responder struct {
	Engine *Engine
	CSRF   *shared.CSRFManager
	Logger *slog.Logger
}

// NewResponder constructs a Responder.
func NewResponder(engine *Engine, csrf *shared.CSRFManager, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{Engine: engine, CSRF: csrf, Logger: logger}
}

// Page renders a template, consuming the pending flash message.
func (p *Responder) Page(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	var token string
	var flash *shared.FlashMessage
	if sess != nil {
		token, _ = p.CSRF.EnsureToken(r.Context(), sess)
		flash = sess.PopFlash()
	}
	user, _ := shared.PrincipalFromContext(r.Context())
	td := TemplateData{
		Title:       title,
		CSRFToken:   token,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		User:        user,
		Data:        data,
	}
	if err := p.Engine.Render(w, status, name, td); err != nil {
		p.Logger.Error("render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// Redirect queues a flash message and redirects with 303.
func (p *Responder) Redirect(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil && message != "" {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// NotFound renders the shared 404 page.
func (p *Responder) NotFound(w http.ResponseWriter, r *http.Request) {
	p.Page(w, r, http.StatusNotFound, "pages/not_found.html", "Not found", nil)
}

// ServerError logs err and renders the shared error page.
func (p *Responder) ServerError(w http.ResponseWriter, r *http.Request, err error) {
	p.Logger.Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	p.Page(w, r, http.StatusInternalServerError, "pages/error.html", "Error", map[string]string{
		"Message": shared.UserSafeMessage(err),
	})
}
