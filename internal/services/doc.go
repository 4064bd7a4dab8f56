// Package services contains the HTTP clients for both catalogs involved in a
// migration.
//
// [NeteaseService] implements [SourceCatalog]: read-only playlist and track
// metadata fetches against the music.163.com JSON endpoints, optionally
// carrying a captured browser session cookie.
//
// [SpotifyService] implements [TargetCatalog]: search, playlist creation,
// cover upload, and batched track appends against the Spotify Web API, plus
// the raw authorization-code and refresh-token exchanges the auth manager
// drives. All authenticated requests obtain their bearer token through the
// [TokenSource] interface so refresh checks cannot be bypassed.
//
// Errors from the target side are [*APIError] values distinguishing client
// errors from transient 429/5xx failures; the latter carry any Retry-After
// hint the server sent.
package services
