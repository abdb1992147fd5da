package main

import (
	"fmt"
	"log"

	"github.com/tokenspace/engine/pkg/tokenspace"
)

func main() {
	cfg, err := tokenspace.LoadEngineConfig("engine.yaml")
	if err != nil {
		log.Fatal(err)
	}
	e := tokenspace.NewEngine(cfg.EngineOptions())

	cat := tokenspace.NewToken(1)
	dog := tokenspace.NewToken(2)

	if err := e.PlaceToken(cat, tokenspace.MultiCoordinate{
		tokenspace.LCognitive: {Level: tokenspace.LCognitive, X: 0.1, Y: 0.4, Z: 0.2},
	}); err != nil {
		log.Fatal(err)
	}
	if err := e.PlaceToken(dog, tokenspace.MultiCoordinate{
		tokenspace.LCognitive: {Level: tokenspace.LCognitive, X: 0.12, Y: 0.38, Z: 0.22},
	}); err != nil {
		log.Fatal(err)
	}

	if err := e.Connect(cat.ID, dog.ID, tokenspace.EdgeMetadata{
		Kind:              tokenspace.EdgeSimilar,
		Weight:            0.8,
		PreferredDistance: 0.1,
		PullStrength:      0.5,
		Rigidity:          0.3,
	}); err != nil {
		log.Fatal(err)
	}

	neighbors := e.Graph().Neighbors(cat.ID)
	fmt.Printf("neighbors of token %d: %v\n", cat.ID, neighbors)

	degree := e.Graph().Degree(cat.ID)
	fmt.Printf("degree: in=%d out=%d total=%d\n", degree.In, degree.Out, degree.Total)

	stats := e.Stats()
	fmt.Printf("tokens=%d edges=%d\n", stats.Tokens, stats.GraphEdges)
}
