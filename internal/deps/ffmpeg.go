package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFprobePath returns the ffprobe binary to execute.
//
// Static ffmpeg builds ship ffprobe in the same directory, which is often
// not on PATH. When the configured ffprobe cannot be resolved directly, a
// sibling of the resolved ffmpeg binary is preferred before giving up.
func ResolveFFprobePath(ffmpegBinary, ffprobeBinary string) string {
	probe := strings.TrimSpace(ffprobeBinary)
	if probe == "" {
		probe = "ffprobe"
	}
	if resolved, err := exec.LookPath(probe); err == nil {
		return resolved
	}
	if strings.ContainsRune(probe, filepath.Separator) {
		return probe
	}
	ffmpeg := strings.TrimSpace(ffmpegBinary)
	if ffmpeg == "" {
		return probe
	}
	resolvedFFmpeg, err := exec.LookPath(ffmpeg)
	if err != nil {
		return probe
	}
	candidate := filepath.Join(filepath.Dir(resolvedFFmpeg), executableName(filepath.Base(probe)))
	if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
		return candidate
	}
	return probe
}

func executableName(base string) string {
	if runtime.GOOS == "windows" && !strings.HasSuffix(base, ".exe") {
		return base + ".exe"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
