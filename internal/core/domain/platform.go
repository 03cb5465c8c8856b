package domain

import "runtime"

// Platform strings follow the "<arch>-<os>" convention used by package
// descriptors and registry payloads.
const (
	PlatformLinuxAMD64  = "x86_64-linux"
	PlatformLinuxARM64  = "aarch64-linux"
	PlatformDarwinAMD64 = "x86_64-darwin"
	PlatformDarwinARM64 = "aarch64-darwin"
)

// CurrentPlatform returns the platform string for the running binary.
func CurrentPlatform() string {
	goos := runtime.GOOS
	goarch := runtime.GOARCH

	switch {
	case goos == "darwin" && goarch == "amd64":
		return PlatformDarwinAMD64
	case goos == "darwin" && goarch == "arm64":
		return PlatformDarwinARM64
	case goos == "linux" && goarch == "amd64":
		return PlatformLinuxAMD64
	case goos == "linux" && goarch == "arm64":
		return PlatformLinuxARM64
	default:
		// Fallback for unknown systems
		return PlatformLinuxAMD64
	}
}
