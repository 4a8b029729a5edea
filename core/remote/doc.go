// Package remote is a small client for the Frappe resource API.
//
// A Client is bound to one site and one doctype and exposes the four calls the
// sync needs:
//
//	GET  /api/resource/{doctype}?fields=[...]&filters=[...]&limit_page_length=N
//	GET  /api/resource/{doctype}/{name}
//	POST /api/resource/{doctype}
//	PUT  /api/resource/{doctype}/{name}
//
// Requests carry "Authorization: token key:secret". Responses are unwrapped from
// their {"data": ...} envelope into Document values.
//
// # Errors
//
// Non-2xx answers are returned as *APIError with the status and the remote's
// message. Failures below HTTP (dial, timeout, cancelled context) are returned as
// *TransportError, which unwraps to the underlying cause. Get treats 404 as
// "not found" and returns (nil, nil).
package remote
