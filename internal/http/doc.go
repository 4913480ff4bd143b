// Package http provides HTTP handlers and middleware for the room booking API.
//
// The router exposes the following endpoints:
//   - POST /sessions: issues a session token. Body: {"email","password"}. Response:
//     {"token","expires_at","user"} with the token also surfaced via the
//     `X-Session-Token` header and a `session_token` cookie. Rate limited per client.
//   - GET /sessions/current: the caller's user id, admin flag and profile.
//   - DELETE /sessions/current: revokes the caller's token. Returns 204 and clears the cookie.
//   - GET /rooms, POST /rooms, GET|PUT|DELETE /rooms/{id}: room catalog. Mutations
//     require admin privileges.
//   - GET /rooms/availability?date&start_time&end_time[&room_id]: per room
//     availability with the next free time and the current holder.
//   - GET /reservations, POST /reservations, GET|PUT|DELETE /reservations/{id},
//     POST /reservations/{id}/cancel, GET /users/{id}/reservations.
//   - POST /reservations/series, DELETE /reservations/series/{id}: recurring
//     reservations. Series creation reports an outcome per expanded date.
//   - GET /admin/reservations, PUT /admin/reservations/{id}/cancel,
//     PUT /admin/reservations/{id}/calendar-event: administrative views.
//   - GET /users, POST /users, GET|PUT|DELETE /users/{id}: user management.
//   - GET /healthz: database reachability, unauthenticated.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
