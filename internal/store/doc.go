// Package store owns the group content store: the directory tree,
// per-group JSON metadata document and derived thumbnails that back
// grouped uploads.
//
// There is no transactional engine underneath; consistency comes from
// operation ordering (bytes before metadata on writes, metadata before
// bytes on removes) and from defensive re-reads of the metadata
// document on every operation.
package store
