package types

import "testing"

func TestJSONMapMergeIsAdditive(t *testing.T) {
	base := JSONMap{"clientSecret": "pi_1_secret", "attempt": 1}
	incoming := JSONMap{"attempt": 2, "eventType": "payment_intent.succeeded"}

	merged := base.Merge(incoming)

	if merged["clientSecret"] != "pi_1_secret" {
		t.Fatalf("existing key should survive merge, got %v", merged["clientSecret"])
	}
	if merged["attempt"] != 2 {
		t.Fatalf("incoming key should overwrite, got %v", merged["attempt"])
	}
	if merged["eventType"] != "payment_intent.succeeded" {
		t.Fatalf("new key should be added, got %v", merged["eventType"])
	}
	if base["attempt"] != 1 {
		t.Fatalf("merge must not mutate the receiver")
	}
}

func TestItemSnapshotsScanRoundTrip(t *testing.T) {
	original := ItemSnapshots{
		{ProductID: "laptop-001", Name: "Laptop Pro", Quantity: 1, UnitPrice: "1299.99", Subtotal: "1299.99", Currency: "EUR"},
	}

	raw, err := original.Value()
	if err != nil {
		t.Fatalf("Value returned error: %v", err)
	}

	var decoded ItemSnapshots
	if err := decoded.Scan(raw); err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(decoded) != 1 || decoded[0].ProductID != "laptop-001" || decoded[0].Subtotal != "1299.99" {
		t.Fatalf("unexpected decoded snapshots: %+v", decoded)
	}
}

func TestJSONMapScanNil(t *testing.T) {
	m := JSONMap{"stale": true}
	if err := m.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) returned error: %v", err)
	}
	if m != nil {
		t.Fatalf("expected nil map after scanning NULL, got %v", m)
	}
}
