package tokenspace

import "testing"

func TestMakeTokenIDRoundTrip(t *testing.T) {
	id := MakeTokenID(0x3, 0x7, 0xABCDEF)
	domain, entityType, localID := TokenIDParts(id)
	if domain != 0x3 {
		t.Errorf("domain = %x, want 3", domain)
	}
	if entityType != 0x7 {
		t.Errorf("entityType = %x, want 7", entityType)
	}
	if localID != 0xABCDEF {
		t.Errorf("localID = %x, want ABCDEF", localID)
	}
}

func TestNewTokenDefaults(t *testing.T) {
	tok := NewToken(42)
	if !tok.HasFlag(FlagActive) {
		t.Error("new token should be active")
	}
	for level := 0; level < NumLevels; level++ {
		if tok.Coordinates[level][0] != CoordUndefined {
			t.Errorf("level %d should start undefined", level)
		}
	}
}

func TestFlagSetClear(t *testing.T) {
	tok := NewToken(1)
	tok.SetFlag(FlagLocked)
	if !tok.HasFlag(FlagLocked) {
		t.Error("expected FlagLocked set")
	}
	tok.ClearFlag(FlagLocked)
	if tok.HasFlag(FlagLocked) {
		t.Error("expected FlagLocked cleared")
	}
}

func TestEntityTypeRoundTrip(t *testing.T) {
	tok := NewToken(1)
	tok.SetEntityType(0xB)
	if got := tok.EntityType(); got != 0xB {
		t.Errorf("EntityType() = %x, want B", got)
	}
	if !tok.HasFlag(FlagActive) {
		t.Error("setting entity type should not disturb other flags")
	}
}

func TestClampWeight(t *testing.T) {
	tok := NewToken(1)
	tok.Weight = 5
	tok.ClampWeight(0, 1)
	if tok.Weight != 1 {
		t.Errorf("Weight = %v, want clamped to 1", tok.Weight)
	}
}

func TestSetGetCoordinatesRoundTrip(t *testing.T) {
	scales := DefaultLevelConfigs()
	var sc [NumLevels]float32
	for i, c := range scales {
		sc[i] = c.Scale
	}

	tok := NewToken(1)
	x, y, z := float32(1.5), float32(-2.25), float32(0.75)
	tok.SetCoordinates(int(LPhysical), &x, &y, &z, sc)

	gx, gy, gz, ok := tok.GetCoordinates(int(LPhysical), sc)
	if !ok {
		t.Fatal("expected coordinates to be set")
	}
	if diff := gx - x; diff > 0.01 || diff < -0.01 {
		t.Errorf("x round-trip = %v, want ~%v", gx, x)
	}
	if diff := gy - y; diff > 0.01 || diff < -0.01 {
		t.Errorf("y round-trip = %v, want ~%v", gy, y)
	}
	if diff := gz - z; diff > 0.01 || diff < -0.01 {
		t.Errorf("z round-trip = %v, want ~%v", gz, z)
	}
}

func TestSetCoordinatesNilAxisIsUndefined(t *testing.T) {
	var sc [NumLevels]float32
	for i := range sc {
		sc[i] = 1
	}
	tok := NewToken(1)
	x := float32(1)
	tok.SetCoordinates(0, &x, nil, nil, sc)
	if _, _, _, ok := tok.GetCoordinates(0, sc); !ok {
		t.Fatal("setting axis 0 should mark level as defined")
	}
	if tok.Coordinates[0][1] != CoordUndefined {
		t.Error("unset y axis should be CoordUndefined")
	}
}

func TestFieldRadiusStrengthRoundTrip(t *testing.T) {
	tok := NewToken(1)
	tok.EncodeFieldRadius(1.5)
	tok.EncodeFieldStrength(0.5)
	if r := tok.DecodeFieldRadius(); r < 1.49 || r > 1.51 {
		t.Errorf("DecodeFieldRadius() = %v, want ~1.5", r)
	}
	if s := tok.DecodeFieldStrength(); s < 0.49 || s > 0.51 {
		t.Errorf("DecodeFieldStrength() = %v, want ~0.5", s)
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	tok := NewToken(0x12345678)
	tok.Flags = FlagActive | FlagHub
	tok.Weight = 0.75
	tok.FieldRadius = 200
	tok.FieldStrength = 128
	tok.Timestamp = 1_700_000_000

	packed := tok.Pack()
	if len(packed) != TokenSize {
		t.Fatalf("Pack() length = %d, want %d", len(packed), TokenSize)
	}

	got, err := UnpackToken(packed[:])
	if err != nil {
		t.Fatalf("UnpackToken() error = %v", err)
	}
	if got.ID != tok.ID || got.Flags != tok.Flags || got.Weight != tok.Weight ||
		got.FieldRadius != tok.FieldRadius || got.FieldStrength != tok.FieldStrength ||
		got.Timestamp != tok.Timestamp {
		t.Errorf("UnpackToken() = %+v, want %+v", got, tok)
	}
}

func TestUnpackTokenRejectsWrongSize(t *testing.T) {
	if _, err := UnpackToken(make([]byte, 10)); err == nil {
		t.Error("expected error for undersized buffer")
	}
}
