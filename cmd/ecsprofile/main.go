// ecsprofile runs an add/query/remove churn workload against the ECS core
// under pkg/profile.
//
// Usage:
//
//	go run ./cmd/ecsprofile [-mode mem|cpu] [-rounds n] [-iters n] [-entities n] [-out dir]
//	go tool pprof -http=":8000" -nodefraction=0.001 mem.pprof
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pkg/profile"

	"github.com/l1jgo/ecsworld/internal/core/ecs"
)

type comp1 struct {
	ecs.ComponentBase
	V, W int64
}

type comp2 struct {
	ecs.ComponentBase
	V, W int64
}

type tag struct {
	ecs.ComponentBase
}

func main() {
	fs := flag.NewFlagSet("ecsprofile", flag.ExitOnError)
	mode := fs.String("mode", "mem", "profile mode: mem or cpu")
	rounds := fs.Int("rounds", 20, "fresh worlds to build")
	iters := fs.Int("iters", 1000, "churn iterations per world")
	entities := fs.Int("entities", 1000, "entities created per iteration")
	out := fs.String("out", ".", "profile output directory")
	_ = fs.Parse(os.Args[1:])

	var opt func(*profile.Profile)
	switch *mode {
	case "mem":
		opt = profile.MemProfileAllocs
	case "cpu":
		opt = profile.CPUProfile
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}

	p := profile.Start(opt, profile.ProfilePath(*out), profile.NoShutdownHook)
	start := time.Now()
	visited := run(*rounds, *iters, *entities)
	p.Stop()
	fmt.Printf("%d rounds, %d rows visited in %s\n", *rounds, visited, time.Since(start))
}

// run builds each world once and then repeatedly creates numEntities
// entities through command buffers, iterates a cached two-component query
// and deletes everything again.
func run(rounds, iters, numEntities int) int {
	visited := 0
	for range rounds {
		w := ecs.NewWorld(ecs.WithCapacity(numEntities, numEntities))
		cm := w.Components()
		query := ecs.BuildQuery2[comp1, comp2](w.Queries(), ecs.Without[tag](ecs.NewQueryInfo()))
		b1 := ecs.NewCommandBuffer[comp1](cm)
		b2 := ecs.NewCommandBuffer[comp2](cm)
		bt := ecs.NewCommandBuffer[tag](cm)
		b1.Reserve(numEntities, 0)
		b2.Reserve(numEntities, 0)

		for range iters {
			ents := w.Entities().CreateN(numEntities)
			for i, e := range ents {
				b1.Add(e, comp1{V: int64(i)})
				b2.Add(e, comp2{V: 1, W: 2})
				if i%16 == 0 {
					bt.Add(e, tag{})
				}
			}
			b1.Commit()
			b2.Commit()
			bt.Commit()

			query.Each(func(_ ecs.Entity, a *comp1, b *comp2) {
				a.V += b.V
				a.W += b.W
				visited++
			})
			for _, e := range ents {
				w.DeleteEntity(e)
			}
		}
	}
	return visited
}
