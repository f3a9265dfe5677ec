// Package engine runs a live microphone effects chain.
//
// An [Engine] owns the audio device, the processing context and every node
// in it. The caller configures it with effect chains and parameter changes
// from any goroutine; the device callback renders on its own goroutine and
// never blocks on the caller.
//
// The engine moves through three states:
//
//	Uninitialized --Initialize--> Ready --StartCapture--> Capturing
//	Capturing --StopCapture--> Ready
//	any --Cleanup--> Uninitialized
//
// Chain changes rebuild the whole graph off the render path and publish it
// atomically. Continuous parameters are ramped on the live nodes instead.
package engine
