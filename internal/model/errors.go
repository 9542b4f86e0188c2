package model

import "github.com/mentor-match/internal/apperror"

// Storage-level sentinels. Repositories return these so services can match
// them with errors.Is without knowing the driver.
var (
	ErrNotFound        = apperror.New(apperror.KindNotFound, "NOT_FOUND", "resource not found")
	ErrUniqueViolation = apperror.New(apperror.KindConflict, "UNIQUE_VIOLATION", "unique constraint violated")
)
