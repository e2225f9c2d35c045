package gles

import "golang.org/x/sys/unix"

// ThreadAffinity reports whether CurrentThread identifies OS threads.
const ThreadAffinity = true

// CurrentThread returns the id of the OS thread running the caller.
// The caller must be locked to its thread (runtime.LockOSThread) for the
// value to stay meaningful across calls.
func CurrentThread() Thread {
	return Thread(unix.Gettid())
}
