package svcmgr

// Version is the current version of the go-servicemanager library
const Version = "0.4.0"

// VersionInfo contains detailed version information
type VersionInfo struct {
	// Version is the semantic version
	Version string
	// Backends lists the service manager kinds the library can drive
	Backends []string
}

// GetVersion returns the current version information
func GetVersion() VersionInfo {
	kinds := AllKinds()
	backends := make([]string, 0, len(kinds))
	for _, k := range kinds {
		backends = append(backends, k.String())
	}
	return VersionInfo{
		Version:  Version,
		Backends: backends,
	}
}
