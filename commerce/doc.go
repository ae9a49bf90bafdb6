// Package commerce implements the storefront domain: tenants, their single
// store, and the store's products.
//
// Services depend on two collaborators: a Repository with staged
// transactions (see DynamoRepository) and a BlobStore for images. Every
// mutating operation runs one transaction; blob side effects that cannot be
// rolled back (deleting images) only happen after that transaction commits.
//
// StoreService.Delete is the cascade: it removes a store, all of its
// products and the owning tenant's reference in one commit, then deletes the
// collected logo and image keys. A cleanup failure after commit is reported
// as a KindServer error wrapping ErrBlobCleanup, with the Deletion listing
// the orphaned keys.
package commerce
