// Package flatstore implements the legacy flat upload store that
// predates groups. It remains reachable for old clients and is never
// synchronized with the group store.
package flatstore
