// Package contenttypes classifies uploaded files into the kinds the
// server stores: markdown documents and images.
package contenttypes
