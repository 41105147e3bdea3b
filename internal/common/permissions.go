package common

// File permissions for files the extractor writes
const (
	// FilePermissionSecure is used for the settings file
	FilePermissionSecure = 0600

	// FilePermissionNormal is used for exported datasets
	FilePermissionNormal = 0644

	// DirPermissionSecure is used for the settings directory
	DirPermissionSecure = 0700

	// DirPermissionNormal is used for export directories
	DirPermissionNormal = 0755
)
