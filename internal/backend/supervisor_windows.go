//go:build windows

package backend

import (
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"
)

func setProcessGroup(cmd *exec.Cmd) {}

// There is no graceful group signal here; both paths kill the worker only.
func terminateGroup(cmd *exec.Cmd) {
	_ = cmd.Process.Kill()
}

func killGroup(cmd *exec.Cmd) {
	_ = cmd.Process.Kill()
}

func isExecutable(info fs.FileInfo) bool {
	if !info.Mode().IsRegular() {
		return false
	}
	switch strings.ToLower(filepath.Ext(info.Name())) {
	case ".exe", ".bat", ".cmd", ".com":
		return true
	}
	return false
}
