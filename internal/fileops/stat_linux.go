//go:build linux

package fileops

import (
	"os"
	"syscall"
	"time"
)

func fillPlatformStat(entry *Entry, info os.FileInfo) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	entry.Mode = st.Mode
	entry.Owner = int64(st.Uid)
	entry.Group = int64(st.Gid)
	entry.Created = time.Unix(st.Ctim.Unix())
	entry.Accessed = time.Unix(st.Atim.Unix())
}
