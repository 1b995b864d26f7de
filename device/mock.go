package device

// Code generated by MockGen would normally live here; hand-written in
// the same shape since this module never invokes the mockgen binary.
// The //go:generate line below records the equivalent mockgen
// invocation; its output file is not checked in.
//
//go:generate mockgen -write_package_comment=false -package=device -destination=mock_handle_test.go github.com/sarchlab/miogemm/device Handle

import (
	"reflect"

	"github.com/golang/mock/gomock"

	"github.com/sarchlab/miogemm/geometry"
)

// MockHandle is a mock of the Handle interface.
type MockHandle struct {
	ctrl     *gomock.Controller
	recorder *MockHandleMockRecorder
}

// MockHandleMockRecorder is the mock recorder for MockHandle.
type MockHandleMockRecorder struct {
	mock *MockHandle
}

// NewMockHandle creates a new mock instance.
func NewMockHandle(ctrl *gomock.Controller) *MockHandle {
	mock := &MockHandle{ctrl: ctrl}
	mock.recorder = &MockHandleMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockHandle) EXPECT() *MockHandleMockRecorder {
	return m.recorder
}

func (m *MockHandle) OpenQueue(profiling bool) (QueueID, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "OpenQueue", profiling)
	ret0, _ := ret[0].(QueueID)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockHandleMockRecorder) OpenQueue(profiling any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OpenQueue", reflect.TypeOf((*MockHandle)(nil).OpenQueue), profiling)
}

func (m *MockHandle) Alloc(size int, rw ReadWrite) (BufferID, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Alloc", size, rw)
	ret0, _ := ret[0].(BufferID)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockHandleMockRecorder) Alloc(size, rw any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Alloc", reflect.TypeOf((*MockHandle)(nil).Alloc), size, rw)
}

func (m *MockHandle) Write(buf BufferID, offset int, hostBytes []byte) (EventID, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Write", buf, offset, hostBytes)
	ret0, _ := ret[0].(EventID)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockHandleMockRecorder) Write(buf, offset, hostBytes any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Write", reflect.TypeOf((*MockHandle)(nil).Write), buf, offset, hostBytes)
}

func (m *MockHandle) Read(buf BufferID, offset int, hostDst []byte) (EventID, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Read", buf, offset, hostDst)
	ret0, _ := ret[0].(EventID)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockHandleMockRecorder) Read(buf, offset, hostDst any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Read", reflect.TypeOf((*MockHandle)(nil).Read), buf, offset, hostDst)
}

func (m *MockHandle) Compile(source, entryName string) (ProgramID, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Compile", source, entryName)
	ret0, _ := ret[0].(ProgramID)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockHandleMockRecorder) Compile(source, entryName any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Compile", reflect.TypeOf((*MockHandle)(nil).Compile), source, entryName)
}

func (m *MockHandle) Enqueue(program ProgramID, args []byte, globalWS, localWS [2]int, waitOn []EventID) (EventID, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Enqueue", program, args, globalWS, localWS, waitOn)
	ret0, _ := ret[0].(EventID)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockHandleMockRecorder) Enqueue(program, args, globalWS, localWS, waitOn any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Enqueue", reflect.TypeOf((*MockHandle)(nil).Enqueue), program, args, globalWS, localWS, waitOn)
}

func (m *MockHandle) Wait(events []EventID) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Wait", events)
}

func (mr *MockHandleMockRecorder) Wait(events any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Wait", reflect.TypeOf((*MockHandle)(nil).Wait), events)
}

func (m *MockHandle) EventProfile(event EventID) (int64, int64) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "EventProfile", event)
	ret0, _ := ret[0].(int64)
	ret1, _ := ret[1].(int64)
	return ret0, ret1
}

func (mr *MockHandleMockRecorder) EventProfile(event any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "EventProfile", reflect.TypeOf((*MockHandle)(nil).EventProfile), event)
}

func (m *MockHandle) DeviceInfo() geometry.DeviceInfo {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DeviceInfo")
	ret0, _ := ret[0].(geometry.DeviceInfo)
	return ret0
}

func (mr *MockHandleMockRecorder) DeviceInfo() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DeviceInfo", reflect.TypeOf((*MockHandle)(nil).DeviceInfo))
}

func (m *MockHandle) Release(resource Resource) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Release", resource)
}

func (mr *MockHandleMockRecorder) Release(resource any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Release", reflect.TypeOf((*MockHandle)(nil).Release), resource)
}
