package device_test

import (
	gomock "go.uber.org/mock/gomock"

	"github.com/dsiganos/blutil/device"
)

type MockSequenceBuilder struct {
	transport *device.MockTransport
	calls     []any
}

func NewMockSequence(transport *device.MockTransport) *MockSequenceBuilder {
	return &MockSequenceBuilder{
		transport: transport,
		calls:     []any{},
	}
}

// exchange records one strictly ordered command/response pair.
func (b *MockSequenceBuilder) exchange(frame, response string) *MockSequenceBuilder {
	b.calls = append(b.calls,
		b.transport.EXPECT().Write([]byte(frame)).Return(len(frame), nil),
		b.transport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
			return copy(p, response), nil
		}),
	)
	return b
}

func (b *MockSequenceBuilder) DTRToggle() *MockSequenceBuilder {
	b.calls = append(b.calls,
		b.transport.EXPECT().SetDTR(false).Return(nil),
		b.transport.EXPECT().SetDTR(true).Return(nil),
	)
	return b
}

func (b *MockSequenceBuilder) Probe() *MockSequenceBuilder {
	return b.exchange("AT \r", "00\r")
}

func (b *MockSequenceBuilder) Model(model string) *MockSequenceBuilder {
	return b.exchange("AT I 0\r", "\n10\t0\t\t"+model+"\r\n00\r")
}

func (b *MockSequenceBuilder) Revision(revision string) *MockSequenceBuilder {
	return b.exchange("AT I 13\r", "\n10\t13\t\t"+revision+"\r\n00\r")
}

func (b *MockSequenceBuilder) Dir(listing string) *MockSequenceBuilder {
	return b.exchange("AT+DIR\r", listing+"\n00\r")
}

func (b *MockSequenceBuilder) Build() []any {
	return b.calls
}
