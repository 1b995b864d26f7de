// Package device defines the boundary between the tuner core and the
// device runtime: the Handle interface the Benchmarker drives, a
// synthetic SimDevice reference implementation, and a hand-written
// mock for driver-level tests.
package device

import "github.com/sarchlab/miogemm/geometry"

// QueueID, BufferID, ProgramID, and EventID are opaque handles a Handle
// implementation assigns; the core never interprets their values.
type (
	QueueID   uint64
	BufferID  uint64
	ProgramID uint64
	EventID   uint64
)

// Resource is anything Release can reclaim: a QueueID, BufferID,
// ProgramID, or EventID.
type Resource any

// ReadWrite selects a buffer's access mode.
type ReadWrite int

const (
	ReadOnly ReadWrite = iota
	WriteOnly
	ReadWriteBoth
)

// Handle is the device-runtime interface required from the
// environment (§6). The core treats every method as a blocking call;
// §5 names exactly three suspension points: Compile, the Wait after
// Enqueue, and Read.
type Handle interface {
	OpenQueue(profiling bool) (QueueID, error)
	Alloc(size int, rw ReadWrite) (BufferID, error)
	Write(buf BufferID, offset int, hostBytes []byte) (EventID, error)
	Read(buf BufferID, offset int, hostDst []byte) (EventID, error)
	Compile(source, entryName string) (ProgramID, error)
	Enqueue(program ProgramID, args []byte, globalWS, localWS [2]int, waitOn []EventID) (EventID, error)
	Wait(events []EventID)
	EventProfile(event EventID) (startNs, endNs int64)
	DeviceInfo() geometry.DeviceInfo
	Release(resource Resource)
}
