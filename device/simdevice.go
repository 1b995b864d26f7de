package device

import (
	"fmt"
	"sync"

	"github.com/sarchlab/akita/v4/monitoring"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/miogemm/geometry"
)

// nsPerWorkItem is the synthetic per-work-item cost SimDevice charges
// an Enqueue, divided across DeviceInfo.ComputeUnits. There is no real
// device behind SimDevice — it exists so the core can be exercised
// end to end without a GPU, so this constant only needs to produce
// plausible, monotonic timings, not accurate ones.
const nsPerWorkItem = 0.25

// SimDeviceBuilder builds a SimDevice, following the teacher's
// fluent DeviceBuilder pattern.
type SimDeviceBuilder struct {
	engine  sim.Engine
	freq    sim.Freq
	monitor *monitoring.Monitor
	info    geometry.DeviceInfo
}

// WithEngine sets the engine that ticks the device.
func (b SimDeviceBuilder) WithEngine(engine sim.Engine) SimDeviceBuilder {
	b.engine = engine
	return b
}

// WithFreq sets the device's tick frequency.
func (b SimDeviceBuilder) WithFreq(freq sim.Freq) SimDeviceBuilder {
	b.freq = freq
	return b
}

// WithMonitor registers the device with a monitoring dashboard.
func (b SimDeviceBuilder) WithMonitor(monitor *monitoring.Monitor) SimDeviceBuilder {
	b.monitor = monitor
	return b
}

// WithDeviceInfo sets the capabilities SimDevice reports.
func (b SimDeviceBuilder) WithDeviceInfo(info geometry.DeviceInfo) SimDeviceBuilder {
	b.info = info
	return b
}

// Build constructs a SimDevice named name.
func (b SimDeviceBuilder) Build(name string) *SimDevice {
	d := &SimDevice{
		info:     b.info,
		buffers:  make(map[BufferID][]byte),
		programs: make(map[ProgramID]compiledProgram),
		events:   make(map[EventID]eventRecord),
		memo:     make(map[string]ProgramID),
	}
	d.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, d)

	if b.monitor != nil {
		b.monitor.RegisterComponent(d)
	}

	return d
}

type compiledProgram struct {
	source    string
	entryName string
}

type eventRecord struct {
	startNs, endNs int64
}

// SimDevice is a synthetic reference Handle: it has no real kernel
// execution engine, but accepts any source Compile gives it, and
// charges Enqueue a synthetic duration proportional to the work-item
// count, so the rest of the tuner (benchmarking, descent, caching)
// can be exercised without a GPU.
type SimDevice struct {
	*sim.TickingComponent

	mu sync.Mutex

	info geometry.DeviceInfo

	clockNs int64

	nextQueue, nextBuffer, nextProgram, nextEvent uint64

	buffers  map[BufferID][]byte
	programs map[ProgramID]compiledProgram
	events   map[EventID]eventRecord

	// memo is the compile cache (§5): (entry name, source text) mapped
	// to its ProgramID, populated on first Compile; every lookup and
	// insert happens under mu. SimDevice keeps this per instance rather
	// than truly process-wide, since each SimDevice models one
	// independent device.
	memo map[string]ProgramID
}

// Tick never has autonomous work of its own: every SimDevice method
// call is synchronous and completes before it returns, matching the
// single-threaded, synchronous host driver described in §5.
func (d *SimDevice) Tick(now sim.VTimeInSec) (madeProgress bool) {
	return false
}

func (d *SimDevice) OpenQueue(profiling bool) (QueueID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextQueue++
	return QueueID(d.nextQueue), nil
}

func (d *SimDevice) Alloc(size int, rw ReadWrite) (BufferID, error) {
	if size < 0 {
		return 0, newError(EnqueueFailed, "negative allocation size %d", size)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextBuffer++
	id := BufferID(d.nextBuffer)
	d.buffers[id] = make([]byte, size)
	return id, nil
}

func (d *SimDevice) Write(buf BufferID, offset int, hostBytes []byte) (EventID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	backing, ok := d.buffers[buf]
	if !ok {
		return 0, newError(EnqueueFailed, "write to unknown buffer %d", buf)
	}
	if offset < 0 || offset+len(hostBytes) > len(backing) {
		return 0, newError(EnqueueFailed, "write out of bounds: buffer %d size %d, offset %d, len %d",
			buf, len(backing), offset, len(hostBytes))
	}
	copy(backing[offset:], hostBytes)
	return d.completeEvent(int64(len(hostBytes))), nil
}

func (d *SimDevice) Read(buf BufferID, offset int, hostDst []byte) (EventID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	backing, ok := d.buffers[buf]
	if !ok {
		return 0, newError(EnqueueFailed, "read from unknown buffer %d", buf)
	}
	if offset < 0 || offset+len(hostDst) > len(backing) {
		return 0, newError(EnqueueFailed, "read out of bounds: buffer %d size %d, offset %d, len %d",
			buf, len(backing), offset, len(hostDst))
	}
	copy(hostDst, backing[offset:])
	return d.completeEvent(int64(len(hostDst))), nil
}

func (d *SimDevice) Compile(source, entryName string) (ProgramID, error) {
	if source == "" {
		return 0, newError(CompileFailed, "empty source for entry %q", entryName)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := fmt.Sprintf("%s\x00%s", entryName, source)
	if id, ok := d.memo[key]; ok {
		return id, nil
	}

	d.nextProgram++
	id := ProgramID(d.nextProgram)
	d.programs[id] = compiledProgram{source: source, entryName: entryName}
	d.memo[key] = id
	return id, nil
}

func (d *SimDevice) Enqueue(program ProgramID, args []byte, globalWS, localWS [2]int, waitOn []EventID) (EventID, error) {
	d.mu.Lock()
	_, ok := d.programs[program]
	d.mu.Unlock()
	if !ok {
		return 0, newError(EnqueueFailed, "enqueue of uncompiled program %d", program)
	}
	if localWS[0] <= 0 || localWS[1] <= 0 {
		return 0, newError(EnqueueFailed, "non-positive local work size %v", localWS)
	}

	d.Wait(waitOn)

	workItems := int64(globalWS[0]) * int64(globalWS[1])
	units := int64(d.info.ComputeUnits)
	if units < 1 {
		units = 1
	}
	durationNs := int64(float64(workItems) * nsPerWorkItem / float64(units))
	if durationNs < 1 {
		durationNs = 1
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.completeEventLocked(durationNs), nil
}

func (d *SimDevice) completeEvent(durationNs int64) EventID {
	return d.completeEventLocked(durationNs)
}

// completeEventLocked assumes d.mu is already held (Write/Read call it
// while holding the lock via completeEvent; Enqueue reacquires it
// first).
func (d *SimDevice) completeEventLocked(durationNs int64) EventID {
	start := d.clockNs
	d.clockNs += durationNs
	d.nextEvent++
	id := EventID(d.nextEvent)
	d.events[id] = eventRecord{startNs: start, endNs: d.clockNs}
	return id
}

// Wait is a no-op: every SimDevice call already completed
// synchronously by the time it returned an EventID.
func (d *SimDevice) Wait(events []EventID) {}

func (d *SimDevice) EventProfile(event EventID) (startNs, endNs int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.events[event]
	if !ok {
		return 0, 0
	}
	return rec.startNs, rec.endNs
}

func (d *SimDevice) DeviceInfo() geometry.DeviceInfo {
	return d.info
}

func (d *SimDevice) Release(resource Resource) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch id := resource.(type) {
	case BufferID:
		delete(d.buffers, id)
	case ProgramID:
		delete(d.programs, id)
	case EventID:
		delete(d.events, id)
	}
}
