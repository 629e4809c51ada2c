package schema

import "testing"

func TestLoadAndValidate(t *testing.T) {
	reg, err := Load("../../schemas")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	descs := reg.List()
	if len(descs) == 0 {
		t.Fatal("List() returned no descriptors")
	}

	ok := reg.Validate("gameStateUpdate", []byte(`{"gameId":"g1","tickCount":0,"price":1.0,"active":true}`))
	if !ok.OK {
		t.Errorf("expected valid payload to pass, got error %q", ok.Error)
	}

	bad := reg.Validate("gameStateUpdate", []byte(`{"gameId":"g1","price":null}`))
	if bad.OK {
		t.Error("expected missing required fields to fail validation")
	}
}

func TestValidateUnknownSchemaKey(t *testing.T) {
	reg, err := Load("../../schemas")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	result := reg.Validate("doesNotExist", []byte(`{}`))
	if result.OK {
		t.Error("unknown schema key should never report OK")
	}
}

func TestOutboundTypeFor(t *testing.T) {
	if got := OutboundTypeFor("newTrade"); got != "trade" {
		t.Errorf("OutboundTypeFor(newTrade) = %q, want %q", got, "trade")
	}
	if got := OutboundTypeFor("currentSideBet"); got != "side_bet" {
		t.Errorf("OutboundTypeFor(currentSideBet) = %q, want %q", got, "side_bet")
	}
}
