//go:build !linux

package fileops

import "os"

// Ownership and access times are not portable; entries keep the synthesized
// mode and report the modification time for created and accessed.
func fillPlatformStat(entry *Entry, _ os.FileInfo) {
	entry.Owner = -1
	entry.Group = -1
}
