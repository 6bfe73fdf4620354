// Package repository implements the MySQL persistence layer. Domain
// sentinel errors live in the model package; this file only keeps
// repository-local sentinels that do not belong to the booking
// taxonomy.
package repository

import "errors"

// ErrEmailExists is returned when registering a user with an email
// address that is already taken. Handlers translate this into an HTTP
// 400 response.
var ErrEmailExists = errors.New("email already exists")
