package systemd

import "testing"

func TestGetListenersWithoutActivation(t *testing.T) {
	t.Setenv("LISTEN_PID", "")
	t.Setenv("LISTEN_FDS", "")

	listeners, err := GetListeners()
	if err != nil {
		t.Fatalf("GetListeners failed: %v", err)
	}
	if listeners.Activated || listeners.Metrics != nil {
		t.Fatalf("expected no activated listeners, got %+v", listeners)
	}
}

func TestNotifyWithoutSystemd(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")

	if err := NotifyReady(); err != nil {
		t.Fatalf("NotifyReady failed: %v", err)
	}
	if err := NotifyStopping(); err != nil {
		t.Fatalf("NotifyStopping failed: %v", err)
	}
}
