package routes

import "github.com/sendwave-dev/sendwave/internal/guard"

// Default returns the application's page table
func Default() *Table {
	t, err := NewTable(DefaultRoutes())
	if err != nil {
		// The built-in declarations are static
		panic(err)
	}
	return t
}

// DefaultRoutes lists every page with its declared policy
func DefaultRoutes() []Route {
	return []Route{
		// Public pages
		{Name: "landing", Path: "/", Page: "Landing", Policy: guard.Public()},
		{Name: "unsubscribe", Path: "/unsubscribe/:token", Page: "Unsubscribe", Policy: guard.Public()},
		{Name: "email-tracking", Path: "/track/:messageID", Page: "EmailTracking", Policy: guard.Public()},
		{Name: "api-docs", Path: "/docs/api", Page: "ApiDocumentation", Policy: guard.Public()},

		// Signed-out only
		{Name: "login", Path: "/login", Page: "Login", Policy: guard.PublicOnly()},
		{Name: "register", Path: "/register", Page: "Register", Policy: guard.PublicOnly()},
		{Name: "forgot-password", Path: "/forgot-password", Page: "ForgotPassword", Policy: guard.PublicOnly()},

		// Signed-in users
		{Name: "dashboard", Path: "/dashboard", Page: "Dashboard", Policy: guard.Authenticated()},
		{Name: "account", Path: "/account", Page: "Account", Policy: guard.Authenticated()},
		{Name: "campaigns", Path: "/campaigns", Page: "Campaigns", Policy: guard.Authenticated()},
		{Name: "campaign-new", Path: "/campaigns/new", Page: "CampaignBuilder", Policy: guard.Authenticated()},
		{Name: "campaign-detail", Path: "/campaigns/:id", Page: "CampaignDetail", Policy: guard.Authenticated()},
		{Name: "campaign-edit", Path: "/campaigns/:id/edit", Page: "CampaignBuilder", Policy: guard.Authenticated()},
		{Name: "ab-testing", Path: "/campaigns/:id/ab-testing", Page: "ABTesting", Policy: guard.Authenticated()},
		{Name: "notifications", Path: "/notifications", Page: "Notifications", Policy: guard.Authenticated()},
		{Name: "single-send", Path: "/single-send", Page: "SingleSend", Policy: guard.AuthenticatedRoles(guard.RoleAdmin, guard.RoleUser)},

		// Administration
		{Name: "admin", Path: "/admin", Page: "AdminDashboard", Policy: guard.AuthenticatedAdmin()},
		{Name: "system-settings", Path: "/admin/settings", Page: "SystemSettings", Policy: guard.AuthenticatedAdmin()},
		{Name: "user-activity", Path: "/admin/activity", Page: "UserActivity", Policy: guard.AuthenticatedAdmin()},
		{Name: "queues", Path: "/admin/queues", Page: "Queues", Policy: guard.AuthenticatedAdmin()},
	}
}
