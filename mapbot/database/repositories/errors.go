package repositories

import "fmt"

// NotFoundError reports a lookup for an entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     any
}

func (nfe *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %v not found", nfe.Entity, nfe.ID)
}
