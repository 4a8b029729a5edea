// Package middleware groups the HTTP middleware used by the serve command.
//
//   - auth: rejects requests without the configured X-API-Key.
//   - rayid: tags every request with an X-Ray-ID, stored in the "ray_id" local
//     that logger.WithRayID reads.
package middleware
