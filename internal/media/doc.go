// Package media generates thumbnail previews for uploaded images.
package media
