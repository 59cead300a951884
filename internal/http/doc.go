// Package http serves the local ManagerApp console.
//
// Every guarded view is the JSON projection of a long-lived screen object.
// The router exposes the following endpoints:
//   - GET /authentication/sign-in: sign-in view. Response: {"view","next","authenticated"}.
//   - POST /authentication/sign-in: exchanges {"username","password","next"} (JSON
//     or form encoded) for a session and answers 303 to the return location.
//   - POST /authentication/sign-out: clears the session and answers 303 to sign-in.
//   - GET /session: {"authenticated","valid","user","expiresAt"}; never redirects.
//   - GET /appointments: appointments page; query parameters page, size, clientId,
//     status, startDateTime, endDateTime and day move the loader before rendering.
//     POST /appointments, PUT /appointments/{id} and POST
//     /appointments/{id}/{cancel|done|noShow} mutate and answer with the refreshed view.
//   - GET /clients (page, size, name), POST /clients, PUT /clients/{id},
//     DELETE /clients/{id}.
//   - GET /working-periods, PUT /working-periods (whole week), POST
//     /working-periods, PUT /working-periods/{id}, DELETE /working-periods/{id}.
//   - GET /availability, POST /availability/open, POST /availability/date,
//     POST /availability/select, POST /availability/close: the slot picker.
//   - GET /notifications: drains pending notifications.
//   - GET /metrics: Prometheus metrics.
//
// Guarded endpoints answer 303 to the sign-in view when the session is not
// locally valid. When the backend rejects the session mid-request the
// response is 401 with {"message","redirect"}.
package http
