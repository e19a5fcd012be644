package controllers

import (
	"log/slog"
	"net/http"

	"bannedemails/internal/delivery/http/helpers"
	"bannedemails/internal/delivery/http/middleware"
	"bannedemails/internal/domain"
)

// Posted checkout form fields read by the ban check. Other posted fields are ignored.
const (
	fieldEmail         = "edd_email"
	fieldUserLogin     = "edd_user_login"
	fieldPurchaseState = "edd-purchase-var"
)

// ValidateCheckoutRequest is the request body for POST /checkout/validate.
// Posted is the checkout form as submitted. Errors carries the host's
// existing validation errors, which are preserved.
type ValidateCheckoutRequest struct {
	Posted map[string]string `json:"posted"`
	Errors map[string]string `json:"errors"`
}

// ValidateCheckoutResponse is the data payload for POST /checkout/validate.
type ValidateCheckoutResponse struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

// ValidateCheckoutSuccessResponse is the success response envelope for POST /checkout/validate (200).
type ValidateCheckoutSuccessResponse struct {
	Data  ValidateCheckoutResponse `json:"data"`
	Error *helpers.APIError        `json:"error"`
}

type CheckoutController struct {
	Logger  *slog.Logger
	Service domain.BanService
}

func NewCheckoutController(logger *slog.Logger, svc domain.BanService) *CheckoutController {
	return &CheckoutController{
		Logger:  logger,
		Service: svc,
	}
}

// ValidateCheckout godoc
// @Summary Validate a checkout against the banned list
// @Description Adds the email_banned error when the purchaser's posted email or account email is banned. Existing errors are returned unchanged. Send the purchaser's session token to identify a logged-in purchaser; guests send no Authorization header.
// @Tags checkout
// @Accept json
// @Produce json
// @Param checkout body ValidateCheckoutRequest true "Posted checkout fields and existing errors"
// @Success 200 {object} controllers.ValidateCheckoutSuccessResponse "data.valid is false when any error is present"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /checkout/validate [post]
func (c *CheckoutController) ValidateCheckout(w http.ResponseWriter, r *http.Request) {
	var req ValidateCheckoutRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	attempt := domain.CheckoutAttempt{
		Email:         req.Posted[fieldEmail],
		UserLogin:     req.Posted[fieldUserLogin],
		PurchaseState: req.Posted[fieldPurchaseState],
	}
	if session, ok := middleware.SessionFromContext(r.Context()); ok {
		attempt.UserID = session.UserID
	}
	errs := domain.ValidationErrors(req.Errors)
	if errs == nil {
		errs = domain.ValidationErrors{}
	}
	if _, err := c.Service.CheckPurchase(r.Context(), attempt, errs); err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "checkout validation failed")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ValidateCheckoutResponse{
		Valid:  len(errs) == 0,
		Errors: errs,
	})
}
