// Package storedb implements the core repositories on the persistence façade.
// Each collection lives under one key; mutations are whole-collection
// read-modify-write, which keeps the store contract trivial at the small
// per-user record counts this app sees.
package storedb

// Collection keys. The remote mirror syncs collections under these same names.
const (
	keyApplications = "teacher_applications"
	keyOfferings    = "teacher_services"
	keySessions     = "sessions"
	keyPayments     = "payments"
	keyProfiles     = "teacher_profiles"
)

// Collections lists every synced collection key, in no particular order.
func Collections() []string {
	return []string{keyApplications, keyOfferings, keySessions, keyPayments, keyProfiles}
}

// IsCollection reports whether key names a known collection.
func IsCollection(key string) bool {
	for _, k := range Collections() {
		if k == key {
			return true
		}
	}
	return false
}
