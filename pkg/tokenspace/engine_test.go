package tokenspace

import "testing"

func TestEnginePlaceConnectRemove(t *testing.T) {
	e := NewEngine(DefaultEngineOptions())

	if err := e.PlaceToken(NewToken(1), MultiCoordinate{LPhysical: {Level: LPhysical, X: 0, Y: 0, Z: 0}}); err != nil {
		t.Fatalf("PlaceToken(1) error = %v", err)
	}
	if err := e.PlaceToken(NewToken(2), MultiCoordinate{LPhysical: {Level: LPhysical, X: 1, Y: 0, Z: 0}}); err != nil {
		t.Fatalf("PlaceToken(2) error = %v", err)
	}

	e.Graph().Add(1, 100)
	e.Graph().Add(2, 100)

	if err := e.Connect(1, 2, EdgeMetadata{Kind: EdgeSpatialProximity}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if d := e.Graph().Degree(1); d.Total != 1 {
		t.Errorf("Degree(1).Total = %d, want 1", d.Total)
	}

	if !e.RemoveToken(1) {
		t.Error("RemoveToken(1) should report true")
	}
	if d := e.Graph().Degree(2); d.Total != 0 {
		t.Errorf("Degree(2).Total after removing its only neighbor = %d, want 0", d.Total)
	}
	if neighbors := e.Graph().FindTemporalNeighbors(2, 1000); len(neighbors) != 0 {
		t.Errorf("FindTemporalNeighbors(2) after RemoveToken(1) = %v, want none - the removed id's node/timestamp entry should be gone", neighbors)
	}
}

func TestEngineConnectRejectsUnplacedToken(t *testing.T) {
	e := NewEngine(DefaultEngineOptions())
	if err := e.PlaceToken(NewToken(1), MultiCoordinate{}); err != nil {
		t.Fatalf("PlaceToken() error = %v", err)
	}
	if err := e.Connect(1, 99, EdgeMetadata{}); err == nil {
		t.Error("Connect() with an unplaced endpoint should error")
	}
}

func TestEngineCdnaUpdatePropagatesScales(t *testing.T) {
	e := NewEngine(DefaultEngineOptions())

	next := e.Cdna().Current()
	next.GridPhysics.Scales[LPhysical] = 42
	if err := e.Cdna().Update("tester", next, nil); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if got := e.Coordinates().Scales()[LPhysical]; got != 42 {
		t.Errorf("Coordinates().Scales()[LPhysical] = %v, want 42 after CDNA update", got)
	}
}

func TestEngineStats(t *testing.T) {
	e := NewEngine(DefaultEngineOptions())
	if err := e.PlaceToken(NewToken(1), MultiCoordinate{}); err != nil {
		t.Fatalf("PlaceToken() error = %v", err)
	}
	stats := e.Stats()
	if stats.Tokens != 1 {
		t.Errorf("Stats().Tokens = %d, want 1", stats.Tokens)
	}
}
