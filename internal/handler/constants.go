// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	RouteRoot      = "/"
	RouteNotices   = "/notices"
	RouteContacts  = "/contacts"
	RouteMarket    = "/market"
	RouteRegister  = "/register"
	RouteLogin     = "/admin/login"
	RouteLogout    = "/admin/logout"
	RouteDashboard = "/admin/dashboard"
	RouteHealth    = "/health"
	RouteRobots    = "/robots.txt"

	RouteAdminNotices  = "/admin/notices"
	RouteAdminContacts = "/admin/contacts"
	RouteAdminJobs     = "/admin/jobs"

	RouteParamID    = "/{id}"
	RouteSuffixNew  = "/new"
	RouteSuffixEdit = "/{id}/edit"
	RouteSuffixDel  = "/{id}/delete"
)

// User-facing messages. Form errors re-render the form with HTTP 200;
// the others are plain-text status responses.
const (
	msgInvalidCredentials = "Invalid credentials"
	msgTooManyAttempts    = "Too many failed attempts. Please try again later."
	msgRegisterRequired   = "Username and password required"
	msgUsernameTaken      = "Username already taken"
	msgRegisterFailed     = "Failed to register"

	msgNoticeRequired     = "Title and content are required"
	msgNoticeCreateFailed = "Failed to create notice"
	msgNoticeUpdateFailed = "Failed to update notice"

	msgContactRequired     = "Name is required"
	msgContactCreateFailed = "Failed to add contact"
	msgContactUpdateFailed = "Failed to update contact"

	msgMarketRequired     = "Title, description and category required"
	msgMarketBadCategory  = "Unknown category"
	msgMarketBadPrice     = "Price must be a non-negative number"
	msgMarketCreateFailed = "Failed to create post"
	msgMarketUpdateFailed = "Failed to update"

	msgAttachmentTooLarge = "Attachment too large (max 5 MB)"
	msgAttachmentFailed   = "Failed to save attachment"
	msgInvalidForm        = "Invalid form data"

	msgNoticeNotFound  = "Notice not found"
	msgPostNotFound    = "Post not found"
	msgContactNotFound = "Contact not found"

	msgForbidden     = "Forbidden"
	msgDatabaseError = "Database error"
	msgDeleteFailed  = "Failed to delete"
)
