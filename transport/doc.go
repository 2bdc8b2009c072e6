// Package transport is the HTTP middleware pipeline between the API client
// and the network. It attaches the stored bearer token to every request and,
// when the backend answers 401, performs at most one token refresh and one
// retry for that request. A failed refresh clears the stored session and
// hands control to an expiry callback, which navigates to the login view.
package transport
