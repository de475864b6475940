package handlers

import "net/http"

// Handlers groups everything mounted on the API mux
type Handlers struct {
	Middleware *Middleware
	Auth       *AuthHandler
	Child      *ChildHandler
	Parent     *ParentHandler
	Admin      *AdminHandler
	Live       *LiveHandler
}

// Register mounts the JSON API, the OAuth redirects and the live feed on mux
func (h *Handlers) Register(mux *http.ServeMux) {
	m := h.Middleware
	parent := func(fn http.HandlerFunc) http.HandlerFunc { return m.RequireAuth(m.CSRFProtect(fn)) }
	admin := func(fn http.HandlerFunc) http.HandlerFunc { return m.RequireAdmin(m.CSRFProtect(fn)) }

	// Public routes
	mux.HandleFunc("POST /api/auth/register", m.RateLimit(h.Auth.Register))
	mux.HandleFunc("POST /api/auth/login", m.RateLimit(h.Auth.Login))
	mux.HandleFunc("POST /api/auth/logout", h.Auth.Logout)
	mux.HandleFunc("POST /api/auth/password-reset", m.RateLimit(h.Auth.RequestPasswordReset))
	mux.HandleFunc("GET /api/auth/password-reset/validate", h.Auth.ValidatePasswordReset)
	mux.HandleFunc("POST /api/auth/password-reset/confirm", m.RateLimit(h.Auth.ConfirmPasswordReset))
	mux.HandleFunc("GET /api/auth/providers", h.Auth.OAuthProviders)
	mux.HandleFunc("GET /auth/{provider}/start", h.Auth.StartOAuth)
	mux.HandleFunc("GET /auth/{provider}/callback", h.Auth.OAuthCallback)

	// Parent routes
	mux.HandleFunc("GET /api/me", parent(h.Auth.Me))
	mux.HandleFunc("PUT /api/me", parent(h.Auth.UpdateMe))
	mux.HandleFunc("GET /api/csrf", parent(h.Auth.CSRFToken))

	mux.HandleFunc("GET /api/children", parent(h.Child.ListChildren))
	mux.HandleFunc("POST /api/children", parent(h.Child.CreateChild))
	mux.HandleFunc("GET /api/children/{id}", parent(h.Child.GetChild))
	mux.HandleFunc("PUT /api/children/{id}", parent(h.Child.UpdateChild))
	mux.HandleFunc("DELETE /api/children/{id}", parent(h.Child.DeleteChild))
	mux.HandleFunc("POST /api/children/{id}/token", parent(h.Child.IssueToken))

	mux.HandleFunc("GET /api/loyalty", parent(h.Parent.GetLoyalty))
	mux.HandleFunc("GET /api/parties/packages", parent(h.Parent.PartyPackages))
	mux.HandleFunc("GET /api/parties", parent(h.Parent.ListParties))
	mux.HandleFunc("POST /api/parties", parent(h.Parent.BookParty))
	mux.HandleFunc("POST /api/parties/{id}/cancel", parent(h.Parent.CancelParty))
	mux.HandleFunc("GET /api/tickets", parent(h.Parent.ListTickets))
	mux.HandleFunc("POST /api/tickets", parent(h.Parent.CreateTicket))
	mux.HandleFunc("GET /api/alerts", parent(h.Parent.ListAlerts))

	// Admin routes
	mux.HandleFunc("POST /api/admin/scan", admin(h.Admin.Scan))
	mux.HandleFunc("POST /api/admin/checkin", admin(h.Admin.CheckIn))
	mux.HandleFunc("POST /api/admin/checkout", admin(h.Admin.CheckOut))
	mux.HandleFunc("GET /api/admin/active", admin(h.Admin.ActiveChildren))
	mux.HandleFunc("GET /api/admin/visits", admin(h.Admin.RecentVisits))
	mux.HandleFunc("GET /api/admin/stats", admin(h.Admin.DailyStats))
	mux.HandleFunc("GET /api/admin/children", admin(h.Admin.ListChildren))
	mux.HandleFunc("GET /api/admin/parties", admin(h.Admin.ListParties))
	mux.HandleFunc("POST /api/admin/parties/{id}/status", admin(h.Admin.UpdatePartyStatus))
	mux.HandleFunc("GET /api/admin/tickets", admin(h.Admin.ListTickets))
	mux.HandleFunc("POST /api/admin/tickets/{id}/status", admin(h.Admin.UpdateTicketStatus))
	mux.HandleFunc("GET /api/admin/alerts", admin(h.Admin.ListAlerts))
	mux.HandleFunc("POST /api/admin/alerts", admin(h.Admin.RaiseAlert))
	mux.HandleFunc("POST /api/admin/alerts/{id}/resolve", admin(h.Admin.ResolveAlert))
	mux.HandleFunc("GET /api/admin/export", admin(h.Admin.ExportDatabase))
	mux.HandleFunc("GET /api/admin/live", m.RequireAdmin(h.Live.HandleWebSocket))
}
