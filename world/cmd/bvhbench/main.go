// Йоу, чат! Це бенчмарк BVH дерева поза сервером.
// Будуємо дерева над випадковими коробками різними евристиками
// і з різною кількістю потоків, ганяємо запити і друкуємо табличку.
//
//	bvhbench -n 1000,100000 -threads 1,4 -queries 10000
package main

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"FlowyRealm/world/internal/bvh"
)

const (
	flagSizes    = "n"
	flagThreads  = "threads"
	flagQueries  = "queries"
	flagRounds   = "rounds"
	flagLeafSize = "leaf-size"
	flagSeed     = "seed"
	flagWorld    = "world"
)

func main() {
	app := &cli.App{
		Name:  "bvhbench",
		Usage: "measure BVH build and query speed over random boxes",
		Flags: []cli.Flag{
			&cli.IntSliceFlag{Name: flagSizes, Value: cli.NewIntSlice(1_000, 10_000, 100_000), Usage: "element counts"},
			&cli.IntSliceFlag{Name: flagThreads, Value: cli.NewIntSlice(1, 4), Usage: "build parallelism"},
			&cli.IntFlag{Name: flagQueries, Value: 10_000, Usage: "queries of each kind"},
			&cli.IntFlag{Name: flagRounds, Value: 5, Usage: "builds to average"},
			&cli.IntFlag{Name: flagLeafSize, Value: bvh.DefaultLeafSize, Usage: "max elements in a leaf"},
			&cli.Int64Flag{Name: flagSeed, Value: 1, Usage: "random seed"},
			&cli.Float64Flag{Name: flagWorld, Value: 1000, Usage: "half size of the world in blocks"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type heuristic struct {
	name string
	h    bvh.Heuristic
}

func run(c *cli.Context) error {
	if c.Int(flagQueries) < 1 || c.Int(flagRounds) < 1 {
		return fmt.Errorf("%s and %s must be positive", flagQueries, flagRounds)
	}
	heuristics := []heuristic{{"median", bvh.Median{}}, {"sah", bvh.SAH{}}}
	world := float32(c.Float64(flagWorld))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"N", "Heuristic", "Threads", "Build ms", "Nodes", "Depth", "Range q/s", "Closest q/s", "Ray q/s"})

	for _, n := range c.IntSlice(flagSizes) {
		rng := rand.New(rand.NewSource(c.Int64(flagSeed)))
		boxes := randomBoxes(rng, n, world)
		queries := randomQueries(rng, c.Int(flagQueries), world)

		for _, h := range heuristics {
			for _, threads := range c.IntSlice(flagThreads) {
				opts := bvh.Options{
					LeafSize:    c.Int(flagLeafSize),
					Heuristic:   h.h,
					Parallelism: threads,
					Arena:       bvh.NewArena(n),
				}
				r := measure(boxes, queries, opts, c.Int(flagRounds))
				table.Append([]string{
					strconv.Itoa(n), h.name, strconv.Itoa(threads),
					fmt.Sprintf("%.3f", float64(r.build.Microseconds())/1000),
					strconv.Itoa(r.stats.Nodes), strconv.Itoa(r.stats.Depth),
					rate(len(queries), r.ranges), rate(len(queries), r.closest), rate(len(queries), r.rays),
				})
			}
		}
	}
	table.Render()
	return nil
}

type query struct {
	box bvh.Aabb
	ray bvh.Ray
}

type result struct {
	build   time.Duration
	stats   bvh.Stats
	ranges  time.Duration
	closest time.Duration
	rays    time.Duration
}

func measure(boxes []bvh.Aabb, queries []query, opts bvh.Options, rounds int) (r result) {
	elems := make([]bvh.Aabb, len(boxes))
	var tree *bvh.Tree[bvh.Aabb]
	for i := 0; i < rounds; i++ {
		copy(elems, boxes)
		start := time.Now()
		tree = bvh.BuildWith(elems, bvh.Self[bvh.Aabb], opts)
		r.build += time.Since(start)
	}
	r.build /= time.Duration(rounds)
	r.stats = tree.Stats()

	var found []bvh.Aabb
	start := time.Now()
	for _, q := range queries {
		found = tree.AppendRange(found[:0], q.box, bvh.Self[bvh.Aabb])
	}
	r.ranges = time.Since(start)

	start = time.Now()
	for _, q := range queries {
		tree.Closest(q.box.Mid(), bvh.Self[bvh.Aabb])
	}
	r.closest = time.Since(start)

	start = time.Now()
	for _, q := range queries {
		tree.FirstRayCollision(q.ray, bvh.Self[bvh.Aabb])
	}
	r.rays = time.Since(start)
	return r
}

func rate(n int, d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return strconv.FormatFloat(float64(n)/d.Seconds(), 'f', 0, 64)
}

func randomVec(rng *rand.Rand, half float32) mgl32.Vec3 {
	return mgl32.Vec3{
		(rng.Float32()*2 - 1) * half,
		(rng.Float32()*2 - 1) * half,
		(rng.Float32()*2 - 1) * half,
	}
}

// randomBoxes - коробки розміром з гравця, розкидані по світу
func randomBoxes(rng *rand.Rand, n int, half float32) []bvh.Aabb {
	boxes := make([]bvh.Aabb, n)
	for i := range boxes {
		boxes[i] = bvh.Around(randomVec(rng, half), mgl32.Vec3{0.3, 0.9, 0.3})
	}
	return boxes
}

// randomQueries - зони видимості на 2 чанки і промені в довільних напрямках
func randomQueries(rng *rand.Rand, n int, half float32) []query {
	qs := make([]query, n)
	for i := range qs {
		center := randomVec(rng, half)
		dir := randomVec(rng, 1)
		if dir.Len() == 0 {
			dir = mgl32.Vec3{1, 0, 0}
		}
		qs[i] = query{
			box: bvh.Around(center, mgl32.Vec3{32, 32, 32}),
			ray: bvh.NewRay(center, dir.Normalize()),
		}
	}
	return qs
}
