package gles

import "golang.org/x/sys/windows"

// ThreadAffinity reports whether CurrentThread identifies OS threads.
const ThreadAffinity = true

// CurrentThread returns the id of the OS thread running the caller.
func CurrentThread() Thread {
	return Thread(windows.GetCurrentThreadId())
}
