//go:build !linux && !windows

package gles

// ThreadAffinity reports whether CurrentThread identifies OS threads.
// No thread id source is wired on this platform, so the surfaceless
// backend refuses to start.
const ThreadAffinity = false

// CurrentThread returns a fixed placeholder id.
func CurrentThread() Thread {
	return 1
}
