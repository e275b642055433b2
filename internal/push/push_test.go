package push

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/fernwood/hearth/internal/model"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	// Public key is a base64url-encoded uncompressed P-256 point.
	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}

	// Private key is a base64url-encoded 32-byte P-256 scalar.
	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if len(privBytes) != 32 {
		t.Errorf("private key length = %d, want 32", len(privBytes))
	}

	pub2, _, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("second generation: %v", err)
	}
	if pub == pub2 {
		t.Error("expected different keys on second generation")
	}
}

func TestPayloadJSON(t *testing.T) {
	p := Payload{
		Title:       "Attention requested",
		Body:        "dinner",
		Tag:         "attention-abc",
		Intensity:   string(model.IntensityLoud),
		DurationSec: 30,
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["tag"] != "attention-abc" {
		t.Errorf("tag = %v", decoded["tag"])
	}
	if decoded["intensity"] != "loud" {
		t.Errorf("intensity = %v", decoded["intensity"])
	}
	if decoded["duration_sec"] != float64(30) {
		t.Errorf("duration_sec = %v", decoded["duration_sec"])
	}
}

func TestDefaultSubscriber(t *testing.T) {
	svc := NewService(Config{VAPIDPublicKey: "pub", VAPIDPrivateKey: "priv"}, nil)
	if svc.cfg.Subscriber == "" {
		t.Error("expected a default subscriber")
	}
	if svc.VAPIDPublicKey() != "pub" {
		t.Errorf("public key = %q", svc.VAPIDPublicKey())
	}
}
