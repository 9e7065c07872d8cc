// Package policy holds the pure access decisions consulted before every
// command. Functions here never touch the store; callers pass the
// already-resolved identity and records in.
package policy

import (
	"time"

	"fundbuero/internal/model"
)

// View windows, in elapsed days since an item's found date.
const (
	DefaultViewDays  = 90
	ExtendedViewDays = 366
)

// ViewWindowDays returns how far back the actor sees items.
func ViewWindowDays(actor model.Identity) int {
	if actor.HasExtendedAccess() {
		return ExtendedViewDays
	}
	return DefaultViewDays
}

// CanView reports whether the item falls inside the actor's view
// window.
func CanView(actor model.Identity, item model.Item, now time.Time) bool {
	return item.ElapsedDays(now) <= ViewWindowDays(actor)
}

// CanViewAll reports whether the actor may bypass the view window
// entirely.
func CanViewAll(actor model.Identity) bool {
	return actor.IsAdmin()
}

// CanRegister reports whether the actor may register new items. Every
// authenticated account can.
func CanRegister(actor model.Identity) bool {
	return actor.UserID != ""
}

// CanEditItem reports whether the actor may edit item records.
func CanEditItem(actor model.Identity) bool {
	return actor.IsAdmin()
}

// CanDeleteItem reports whether the actor may hard-delete items.
func CanDeleteItem(actor model.Identity) bool {
	return actor.IsAdmin()
}

// CanStoreItem reports whether the actor may move items into storage.
func CanStoreItem(actor model.Identity) bool {
	return actor.IsAdmin()
}

// CanRestoreItem reports whether the actor may bring stored items back.
func CanRestoreItem(actor model.Identity) bool {
	return actor.IsAdmin()
}

// CanSellItem reports whether the actor may mark items as sold.
func CanSellItem(actor model.Identity) bool {
	return actor.IsAdmin()
}

// CanInitiateHandover reports whether the actor may start (or complete)
// a handover of the item. Items in storage need an admin; items on the
// shelf just need a logged-in account.
func CanInitiateHandover(actor model.Identity, item model.Item) bool {
	switch item.Status {
	case model.StatusActive:
		return actor.UserID != ""
	case model.StatusStored:
		return actor.IsAdmin()
	default:
		return false
	}
}

// CanListArchive reports whether the actor may read handed-over
// records.
func CanListArchive(actor model.Identity) bool {
	return actor.IsAdmin()
}

// CanManageUsers reports whether the actor may administer accounts.
func CanManageUsers(actor model.Identity) bool {
	return actor.IsAdmin()
}

// CanManageLocations reports whether the actor may administer the
// location catalog.
func CanManageLocations(actor model.Identity) bool {
	return actor.IsAdmin()
}

// CanGrantExtended reports whether the actor may toggle the target's
// extended access. Admins already hold it implicitly, so they are not
// valid targets.
func CanGrantExtended(actor model.Identity, target model.User) bool {
	return actor.IsAdmin() && !target.IsAdmin()
}

// CanChangeRole reports whether the actor may change the target's role.
// Nobody changes their own, so an admin cannot lock themselves out.
func CanChangeRole(actor model.Identity, target model.User) bool {
	return actor.IsAdmin() && actor.UserID != target.ID
}

// CanDeleteUser reports whether the actor may delete the target
// account. Self-deletion is refused for the same reason.
func CanDeleteUser(actor model.Identity, target model.User) bool {
	return actor.IsAdmin() && actor.UserID != target.ID
}
