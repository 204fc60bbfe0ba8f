// Package http exposes the consultant scheduler over HTTP.
//
// Every response body is the envelope
// {"success","message","data"?,"errors"?,"timestamp"}. Dates are rendered as
// YYYY-MM-DD and times of day as HH:MM.
//
// The router exposes the following endpoints:
//   - POST /sessions: issues a session token. Body: {"email","password"}. The
//     token is also surfaced via the `X-Session-Token` header and a
//     `session_token` cookie.
//   - DELETE /sessions/current: revokes the token from the Authorization
//     header or session cookie and clears the cookie.
//   - GET/POST /users, GET/PUT/DELETE /users/{id}: administrator account management.
//   - GET/POST /weekly-schedules, POST /weekly-schedules/copy,
//     GET/PUT/DELETE /weekly-schedules/{id}: weekly template management.
//   - GET /consultants/{id}/weekly-schedules, /availability?date=,
//     /weekly-availability?week_start_date=, /overrides and /appointments:
//     per-consultant views. Listings accept start_date and end_date.
//   - POST /overrides, GET/PUT/DELETE /overrides/{id}: per-date overrides.
//   - POST /appointments, POST /appointments/{id}/cancel,
//     POST /appointments/{id}/confirm: bookings.
//   - GET /healthz and GET /metrics: public operational endpoints.
//
// Request/response DTOs live alongside their respective handlers and in dto.go.
package http
