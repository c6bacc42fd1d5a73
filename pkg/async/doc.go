// Package async provides a safe wrapper for fire-and-forget goroutines.
//
// The engine never blocks a payment activation on its side effects
// (notification events, metric pushes). SafeGo gives those side effects a
// bounded lifetime, panic recovery and error logging so a failing consumer
// cannot crash or leak out of the request path.
package async
