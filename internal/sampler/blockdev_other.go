//go:build !linux

package sampler

const sysRoot = ""

// blockDeviceInfo has no portable source outside Linux.
func blockDeviceInfo(root, device string) (DiskKind, bool) {
	return DiskKindUnknown, false
}
