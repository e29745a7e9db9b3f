package mapping

import "errors"

var (
	// Mapping errors
	ErrMappingNotFound        = errors.New("mapping: category mapping not found")
	ErrMappingAlreadyExists   = errors.New("mapping: active mapping already exists")
	ErrMappingInvalidTenantID = errors.New("mapping: invalid tenant ID")
	ErrMappingInvalidStoreID  = errors.New("mapping: invalid store ID")
	ErrMappingInvalidRemoteID = errors.New("mapping: invalid remote ID")
	ErrMappingInvalidType     = errors.New("mapping: invalid mapping type")

	// Translation errors. Strict paths raise ErrMappingMissing; lenient
	// paths skip the id and log a warning instead.
	ErrMappingMissing = errors.New("mapping: no active mapping for id")

	// Selection errors
	ErrSelectionInvalid       = errors.New("mapping: category selection violates invariants")
	ErrSelectionUnknownFormat = errors.New("mapping: unrecognized selection format")
	ErrSelectionNotFound      = errors.New("mapping: category selection not found")

	// Hierarchy errors
	ErrHierarchyIntegrity = errors.New("mapping: remote parent cannot be resolved")
)
