package shared

import "testing"

func TestConfig_ModeSelectsCredentials(t *testing.T) {
	t.Setenv("IZIPAY_MODE", "production")
	t.Setenv("IZIPAY_PASSWORD", "test-pass")
	t.Setenv("IZIPAY_PASSWORD_PROD", "prod-pass")
	t.Setenv("IZIPAY_HMAC_SHA256", "test-key")
	t.Setenv("IZIPAY_HMAC_SHA256_PROD", "prod-key")
	t.Setenv("POLL_WORKERS", "9")

	c := Load()
	if !c.Production() {
		t.Fatalf("expected production mode, got %q", c.IzipayMode)
	}
	if c.GatewayPassword() != "prod-pass" || c.HMACKey() != "prod-key" {
		t.Fatalf("wrong credentials: %q %q", c.GatewayPassword(), c.HMACKey())
	}
	if c.PollWorkers != 9 {
		t.Fatalf("POLL_WORKERS: got %d", c.PollWorkers)
	}

	t.Setenv("IZIPAY_MODE", "TEST")
	c = Load()
	if c.GatewayPassword() != "test-pass" || c.HMACKey() != "test-key" {
		t.Fatalf("wrong test credentials: %q %q", c.GatewayPassword(), c.HMACKey())
	}
}

func TestConfig_Defaults(t *testing.T) {
	t.Setenv("POLL_INTERVAL_SECONDS", "0")
	t.Setenv("STORE", "Memory")
	t.Setenv("IZIPAY_MODE", "")

	c := Load()
	if c.PollInterval.Seconds() != 300 {
		t.Fatalf("non-positive interval must fall back to default, got %v", c.PollInterval)
	}
	if c.Store != "memory" {
		t.Fatalf("STORE is case-insensitive, got %q", c.Store)
	}
	if c.Production() || c.Currency != "PEN" {
		t.Fatalf("unexpected defaults: mode=%q currency=%q", c.IzipayMode, c.Currency)
	}
}
