// Package gallery implements the client-side navigation state machine
// over the ordered image subset of a group. A session activates only
// when a group holds two or more images and updates in place as
// snapshots arrive, without rebuilding the surrounding view.
package gallery
