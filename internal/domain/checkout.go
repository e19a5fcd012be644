package domain

// PurchaseStateNeedsToLogin marks a purchaser who is logging in as part of
// the checkout submission.
const PurchaseStateNeedsToLogin = "needs-to-login"

// Error code and purchaser-facing copy for a banned checkout. The message
// does not reveal the ban.
const (
	ErrCodeEmailBanned = "email_banned"
	EmailBannedMessage = "An internal error has occured, please try again or contact support."
)

// CheckoutAttempt is one purchase submission as seen by the ban checker.
type CheckoutAttempt struct {
	// Email is the posted checkout email (edd_email).
	Email string
	// UserLogin is the posted login name (edd_user_login).
	UserLogin string
	// PurchaseState is the posted checkout state marker (edd-purchase-var).
	PurchaseState string
	// UserID identifies a logged-in purchaser; empty for guests.
	UserID string
	// AccountEmail is the on-file email of the purchaser's account, resolved
	// by the service. Empty when there is no account.
	AccountEmail string
}

// Authenticated reports whether the purchaser is logged in.
func (a CheckoutAttempt) Authenticated() bool {
	return a.UserID != ""
}

// LoggingIn reports whether the purchaser is logging in mid-checkout.
func (a CheckoutAttempt) LoggingIn() bool {
	return !a.Authenticated() && a.PurchaseState == PurchaseStateNeedsToLogin
}

// ValidationErrors is the host's checkout error collection keyed by error code.
type ValidationErrors map[string]string

// Add records an error, replacing any previous message for the same code.
func (e ValidationErrors) Add(code, message string) {
	e[code] = message
}

// Has reports whether an error with the given code is present.
func (e ValidationErrors) Has(code string) bool {
	_, ok := e[code]
	return ok
}
