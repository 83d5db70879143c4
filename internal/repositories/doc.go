// package repositories provides the persistence layer over database/sql.
//
// Each repository owns the SQL for one aggregate (user credentials,
// playlists, recommendations). Not-found and conflict conditions map to
// the sentinel errors in internal/shared so handlers can translate them
// to HTTP statuses with errors.Is.
package repositories
