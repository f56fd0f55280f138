// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrShopExists indicates a seller already registered a shop,
// while ErrProductNotFound covers both a missing product id and a
// product owned by a different seller.
package repository

import "errors"

// ErrShopExists is returned when a user who already owns a shop tries
// to create another one, or a shop name collides on its slug.
var ErrShopExists = errors.New("shop already exists")

// ErrShopNotFound is returned when no seller profile matches the
// requested user or slug. Handlers translate this into HTTP 404.
var ErrShopNotFound = errors.New("shop not found")

// ErrProductNotFound is returned when a product lookup or an
// owner-scoped mutation matches no row.
var ErrProductNotFound = errors.New("product not found")

// ErrSubscriberExists is returned when a phone number is already on
// the subscriber list.
var ErrSubscriberExists = errors.New("subscriber already exists")
