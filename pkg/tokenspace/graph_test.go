package tokenspace

import "testing"

func TestGraphConnectNeighborsDegree(t *testing.T) {
	g := NewGraphIndex(0, nil)
	if err := g.Connect(1, 2, EdgeMetadata{Kind: EdgeAssociation, Weight: 1}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if d := g.Degree(1); d.Total != 1 {
		t.Errorf("Degree(1).Total = %d, want 1", d.Total)
	}
	neighbors := g.Neighbors(1)
	if len(neighbors) != 1 || neighbors[0] != 2 {
		t.Errorf("Neighbors(1) = %v, want [2]", neighbors)
	}
	if g.Len() != 1 {
		t.Errorf("Len() = %d, want 1", g.Len())
	}
}

func TestGraphConnectRejectsSelfLoop(t *testing.T) {
	g := NewGraphIndex(0, nil)
	if err := g.Connect(1, 1, EdgeMetadata{}); err == nil {
		t.Error("expected ErrSelfLoop")
	}
}

func TestGraphConnectRejectsDegreeCap(t *testing.T) {
	g := NewGraphIndex(1, nil)
	if err := g.Connect(1, 2, EdgeMetadata{}); err != nil {
		t.Fatalf("first Connect() error = %v", err)
	}
	if err := g.Connect(1, 3, EdgeMetadata{}); err == nil {
		t.Error("expected ErrDegreeCap on second connection from token 1")
	}
}

func TestGraphDisconnect(t *testing.T) {
	g := NewGraphIndex(0, nil)
	if err := g.Connect(1, 2, EdgeMetadata{}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !g.Disconnect(1, 2) {
		t.Error("Disconnect() should report true for an existing edge")
	}
	if g.Disconnect(1, 2) {
		t.Error("Disconnect() of an already-removed edge should report false")
	}
	if d := g.Degree(1); d.Total != 0 {
		t.Errorf("Degree(1).Total after disconnect = %d, want 0", d.Total)
	}
}

func TestGraphEdgeMetadataLookup(t *testing.T) {
	g := NewGraphIndex(0, nil)
	meta := EdgeMetadata{Kind: EdgeCausality, Weight: 0.5, PreferredDistance: 2, PullStrength: 1, Rigidity: 0.5}
	if err := g.Connect(5, 9, meta); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	got, ok := g.Edge(9, 5) // order-independent lookup
	if !ok {
		t.Fatal("Edge() should find the edge regardless of argument order")
	}
	if got.Kind != EdgeCausality || got.Weight != 0.5 {
		t.Errorf("Edge() = %+v, want Kind=EdgeCausality Weight=0.5", got)
	}
}

func TestGraphPathBFS(t *testing.T) {
	g := NewGraphIndex(0, nil)
	edges := [][2]uint32{{1, 2}, {2, 3}, {3, 4}}
	for _, e := range edges {
		if err := g.Connect(e[0], e[1], EdgeMetadata{}); err != nil {
			t.Fatalf("Connect(%d, %d) error = %v", e[0], e[1], err)
		}
	}

	path, found := g.Path(1, 4, 10)
	if !found {
		t.Fatal("Path(1, 4) should be found within depth 10")
	}
	want := []uint32{1, 2, 3, 4}
	if len(path) != len(want) {
		t.Fatalf("Path() = %v, want %v", path, want)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Errorf("Path()[%d] = %d, want %d", i, path[i], want[i])
		}
	}

	if _, found := g.Path(1, 4, 2); found {
		t.Error("Path(1, 4, maxDepth=2) should not find a 3-hop path")
	}
}

func TestGraphPathSameNode(t *testing.T) {
	g := NewGraphIndex(0, nil)
	path, found := g.Path(1, 1, 5)
	if !found || len(path) != 1 || path[0] != 1 {
		t.Errorf("Path(1, 1) = %v, %v, want [1], true", path, found)
	}
}

func TestGraphMaintainsHubLeafFlags(t *testing.T) {
	coords := NewCoordinateSystem(DefaultLevelConfigs())
	for _, id := range []uint32{1, 2, 3} {
		if err := coords.Place(NewToken(id), MultiCoordinate{}); err != nil {
			t.Fatalf("Place(%d) error = %v", id, err)
		}
	}
	g := NewGraphIndex(0, coords)

	if err := g.Connect(1, 2, EdgeMetadata{}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	tok, _ := coords.Token(1)
	if !tok.HasFlag(FlagLeaf) {
		t.Error("a token with exactly one neighbor should carry FlagLeaf")
	}

	if err := g.Connect(1, 3, EdgeMetadata{}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	tok, _ = coords.Token(1)
	if tok.HasFlag(FlagLeaf) {
		t.Error("a token with two neighbors should no longer carry FlagLeaf")
	}
	if !tok.HasFlag(FlagActiveGraph) {
		t.Error("a connected token should carry FlagActiveGraph")
	}

	g.Disconnect(1, 2)
	g.Disconnect(1, 3)
	tok, _ = coords.Token(1)
	if tok.HasFlag(FlagActiveGraph) {
		t.Error("a token with no neighbors should not carry FlagActiveGraph")
	}
}

func TestGraphHubFlagAtElevenNeighbors(t *testing.T) {
	coords := NewCoordinateSystem(DefaultLevelConfigs())
	ids := make([]uint32, 12)
	for i := range ids {
		ids[i] = uint32(i + 1)
		if err := coords.Place(NewToken(ids[i]), MultiCoordinate{}); err != nil {
			t.Fatalf("Place(%d) error = %v", ids[i], err)
		}
	}
	g := NewGraphIndex(0, coords)

	hub := ids[0]
	for i := 1; i <= 10; i++ {
		if err := g.Connect(hub, ids[i], EdgeMetadata{}); err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
	}
	tok, _ := coords.Token(hub)
	if tok.HasFlag(FlagHub) {
		t.Error("a token with 10 neighbors should not yet carry FlagHub")
	}

	if err := g.Connect(hub, ids[11], EdgeMetadata{}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	tok, _ = coords.Token(hub)
	if !tok.HasFlag(FlagHub) {
		t.Error("a token with 11 neighbors should carry FlagHub")
	}
}

func TestEdgeMetadataForce(t *testing.T) {
	m := EdgeMetadata{PreferredDistance: 5, PullStrength: 2, Rigidity: 1}
	if f := m.Force(5); f != 0 {
		t.Errorf("Force(preferred) = %v, want 0", f)
	}
	if f := m.Force(10); f <= 0 {
		t.Errorf("Force(beyond preferred) = %v, want > 0 (attraction)", f)
	}
	if f := m.Force(0); f >= 0 {
		t.Errorf("Force(below preferred) = %v, want < 0 (repulsion)", f)
	}
}
