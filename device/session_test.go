package device_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/dsiganos/blutil/device"
)

func TestDeviceNew(t *testing.T) {
	t.Run("Dialer error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDialer := device.NewMockDialer(ctrl)
		mockDialer.EXPECT().Dial(gomock.Any()).Return(nil, errors.New("connection failed"))

		ctx := context.Background()
		d, err := device.New(ctx, device.Config{Dialer: mockDialer})

		if err == nil {
			t.Error("expected error from dialer failure")
		}
		if d != nil {
			t.Error("New() should return nil device when dialer fails")
		}
	})

	t.Run("ErrNotConnected on nil transport", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDialer := device.NewMockDialer(ctrl)
		mockDialer.EXPECT().Dial(gomock.Any()).Return(nil, nil)

		_, err := device.New(context.Background(), device.Config{Dialer: mockDialer})
		if !errors.Is(err, device.ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got: %v", err)
		}
	})
}

// Drives a full reset/identify/list session against strictly ordered mock
// expectations, verifying the exact frames on the wire.
func TestSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTransport := device.NewMockTransport(ctrl)
	mockDialer := device.NewMockDialer(ctrl)

	calls := NewMockSequence(mockTransport).
		DTRToggle().
		Model("BL600r2").
		Revision("1.5.70.0 rel2").
		Dir("\n06\t0\t\"blinky\"\r").
		Build()

	gomock.InOrder(append(
		[]any{mockDialer.EXPECT().Dial(gomock.Any()).Return(mockTransport, nil)},
		calls...,
	)...)
	mockTransport.EXPECT().Close().Return(nil)

	d, err := device.New(context.Background(), device.Config{
		Dialer:      mockDialer,
		SettleDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to create device: %v", err)
	}

	if err := d.Reset(); err != nil {
		t.Fatalf("unexpected error from Reset(): %v", err)
	}
	if err := d.Identify(); err != nil {
		t.Fatalf("unexpected error from Identify(): %v", err)
	}
	if d.Model() != "BL600r2_1.5.70.0_rel2" {
		t.Errorf("model = %q, want %q", d.Model(), "BL600r2_1.5.70.0_rel2")
	}

	listing, err := d.List()
	if err != nil {
		t.Fatalf("unexpected error from List(): %v", err)
	}
	if listing != "06\t0\t\"blinky\"" {
		t.Errorf("listing = %q", listing)
	}

	if err := d.Close(); err != nil {
		t.Errorf("unexpected error from Close(): %v", err)
	}
}
