// Package http implements the HTTP handlers for the analysis pipeline.
// Handlers stay thin: they parse requests, delegate to the session
// service, and render responses; errors become RFC 7807 problem details.
package http
