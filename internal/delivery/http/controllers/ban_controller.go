package controllers

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"bannedemails/internal/delivery/http/helpers"
	"bannedemails/internal/delivery/http/middleware"
	"bannedemails/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var banFormTemplate = template.Must(template.ParseFS(templateFS, "templates/banned_emails_form.html"))

// SaveBannedEmailsAction is the edd_action value posted by the admin form.
const SaveBannedEmailsAction = "save_banned_emails"

// BannedEmailsPath is where the admin form is served and posted.
const BannedEmailsPath = "/admin/banned-emails"

type banFormData struct {
	Action     string
	Emails     string
	EddAction  string
	NonceField string
	Nonce      string
}

// BannedEmailsListResponse is the data payload for GET /api/banned-emails.
type BannedEmailsListResponse struct {
	Emails []string `json:"emails"`
	Count  int      `json:"count"`
}

// BannedEmailsListSuccessResponse is the success response envelope for GET /api/banned-emails (200).
type BannedEmailsListSuccessResponse struct {
	Data  BannedEmailsListResponse `json:"data"`
	Error *helpers.APIError        `json:"error"`
}

type BanController struct {
	Logger  *slog.Logger
	Service domain.BanService
}

func NewBanController(logger *slog.Logger, svc domain.BanService) *BanController {
	return &BanController{
		Logger:  logger,
		Service: svc,
	}
}

// RenderForm godoc
// @Summary Banned emails admin form
// @Description Returns the HTML fragment for editing the banned email list, pre-filled with the current list and a fresh anti-forgery token.
// @Tags banned-emails
// @Produce html
// @Security BearerAuth
// @Success 200 {string} string "HTML fragment"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/banned-emails [get]
func (c *BanController) RenderForm(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	emails, err := c.Service.BannedEmails(r.Context())
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "failed to load banned emails")
		return
	}
	data := banFormData{
		Action:     BannedEmailsPath,
		Emails:     strings.Join(emails, "\n"),
		EddAction:  SaveBannedEmailsAction,
		NonceField: domain.BannedEmailsNonceAction,
		Nonce:      c.Service.NewSaveToken(session.UserID),
	}
	var buf bytes.Buffer
	if err := banFormTemplate.Execute(&buf, data); err != nil {
		c.Logger.ErrorContext(r.Context(), "render banned emails form", "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "failed to render form")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// Save godoc
// @Summary Save the banned email list
// @Description Replaces the banned list with the valid emails from the posted textarea, one per line. Requests with an invalid anti-forgery token are ignored. Always redirects back to the form.
// @Tags banned-emails
// @Accept x-www-form-urlencoded
// @Security BearerAuth
// @Param edd_action formData string true "Must be save_banned_emails"
// @Param banned_emails formData string false "Emails, one per line"
// @Param edd_banned_emails_nonce formData string true "Anti-forgery token from the form"
// @Success 303 "Redirect to the form"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/banned-emails [post]
func (c *BanController) Save(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, helpers.MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid form body")
		return
	}
	if r.PostForm.Get("edd_action") != SaveBannedEmailsAction {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "unknown edd_action")
		return
	}
	err := c.Service.SaveBannedEmails(r.Context(),
		r.PostForm.Get("banned_emails"),
		r.PostForm.Get(domain.BannedEmailsNonceAction),
		session.UserID,
	)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "failed to save banned emails")
		return
	}
	http.Redirect(w, r, BannedEmailsPath, http.StatusSeeOther)
}

// List godoc
// @Summary List banned emails
// @Description Returns the current banned email list, including entries merged from the operator file.
// @Tags banned-emails
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.BannedEmailsListSuccessResponse "data contains the list"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /api/banned-emails [get]
func (c *BanController) List(w http.ResponseWriter, r *http.Request) {
	emails, err := c.Service.BannedEmails(r.Context())
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "failed to load banned emails")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, BannedEmailsListResponse{Emails: emails, Count: len(emails)})
}
