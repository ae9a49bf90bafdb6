// Package blob stores binary objects (store logos, product images) in an S3
// bucket.
//
// Objects are written under a namespace prefix and addressed by opaque keys:
//
//	stores/{storeId}/logo/{uuid}
//	stores/{storeId}/products/{productId}/{uuid}
//
// Keys are never served directly; readers get a time-limited signed URL.
// DeleteMany is partial-failure tolerant: it attempts every key and reports
// the ones that could not be removed through *DeleteError.
package blob
