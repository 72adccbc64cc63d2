// Command numa-demo drives the NUMA-aware memory core end to end: it seeds
// a handful of keys across the five value kinds, fans a synthetic
// workload of admin commands out across a pool of worker goroutines via a
// lock-free queue, and ticks the strategy scheduler alongside them the
// way a host store's own background maintenance loop would.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/nodalcore/numakv/internal/cli"
	"github.com/nodalcore/numakv/internal/core"
	"github.com/nodalcore/numakv/internal/runtime/concurrency"
	"github.com/nodalcore/numakv/internal/values"
)

func main() {
	nodes := flag.Int("nodes", 4, "number of memory nodes to simulate")
	workers := flag.Int("workers", 4, "number of concurrent workers issuing admin commands")
	requests := flag.Int("requests", 200, "total number of admin commands to issue")
	verbose := flag.Bool("verbose", false, "log every dispatched command")
	showVersion := flag.Bool("version", false, "print version information and exit")
	jsonOutput := flag.Bool("json", false, "emit --version output as JSON")
	flag.Parse()

	if *showVersion {
		cli.PrintVersion("numa-demo", *jsonOutput)
		return
	}

	if err := cli.ValidateArgs([]string{"."}, 1, "numa-demo [-nodes N] [-workers N] [-requests N]"); err != nil {
		cli.ExitWithError("%v", err)
	}

	logger := cli.NewLogger(*verbose, false)
	ctx := core.New(core.WithNodeCount(*nodes))

	seedDemoData(ctx)
	logger.Info("seeded demo store with %d keys across every value kind", len(seedKeys))

	queue := concurrency.NewMPMCQueue[string](1024)
	produced := make(chan struct{})
	go produceCommands(queue, *requests, produced)

	stop := make(chan struct{})
	go runScheduler(ctx, stop)

	var consumed sync.WaitGroup
	var results resultTally
	consumed.Add(*workers)
	for i := 0; i < *workers; i++ {
		go consumeCommands(ctx, queue, logger, produced, &consumed, &results)
	}

	consumed.Wait()
	close(stop)

	finalStats, _ := ctx.Dispatch("config stats")
	fmt.Println(finalStats)
	fmt.Printf("issued=%d ok=%d errors=%d\n", results.total(), results.ok, results.err)
}

var seedKeys = []string{"session:1", "profile:1", "timeline:1", "tags:1", "leaderboard:1"}

// seedDemoData populates the default in-memory store with one value of
// each of the five migratable kinds, so the synthetic workload exercises
// every path the migration engine knows about.
func seedDemoData(ctx *core.Context) {
	ctx.Put("session:1", &values.String{Encoding: values.StringRaw, Raw: []byte("opaque-session-blob")})
	ctx.Put("profile:1", &values.Hash{Encoding: values.HashTable, Table: map[string][]byte{
		"name": []byte("ada"), "plan": []byte("pro"),
	}})
	ctx.Put("timeline:1", &values.List{Nodes: []*values.QuicklistNode{
		{Raw: []byte("event-1"), SerializedSize: 7},
		{Raw: []byte("event-2"), SerializedSize: 7},
	}})
	ctx.Put("tags:1", &values.Set{Encoding: values.SetHashTable, Table: map[string]struct{}{
		"go": {}, "numa": {}, "cxl": {},
	}})

	sl := values.NewSkiplist()
	sl.Insert("alice", 42)
	sl.Insert("bob", 17)
	ctx.Put("leaderboard:1", &values.SortedSet{
		Encoding: values.SortedSetSkiplist, Skiplist: sl,
		Dict: map[string]float64{"alice": 42, "bob": 17},
	})
}

// produceCommands fills queue with a synthetic mix of the admin command
// surface, then closes done once every request has been enqueued.
func produceCommands(queue *concurrency.MPMCQueue[string], total int, done chan<- struct{}) {
	defer close(done)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < total; i++ {
		cmd := randomCommand(rng)
		for !queue.Enqueue(cmd) {
			time.Sleep(time.Microsecond)
		}
	}
}

func randomCommand(rng *rand.Rand) string {
	key := seedKeys[rng.Intn(len(seedKeys))]
	switch rng.Intn(5) {
	case 0:
		return fmt.Sprintf("migrate key %s %d", key, rng.Intn(4))
	case 1:
		return "migrate stats"
	case 2:
		return "config stats"
	case 3:
		return "config rebalance"
	default:
		return fmt.Sprintf("migrate info %s", key)
	}
}

type resultTally struct {
	mu       sync.Mutex
	ok, err  int64
}

func (r *resultTally) record(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ok {
		r.ok++
	} else {
		r.err++
	}
}

func (r *resultTally) total() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ok + r.err
}

// consumeCommands drains queue until the producer has closed produced and
// the queue has run dry, dispatching each command against ctx and
// tallying outcomes.
func consumeCommands(ctx *core.Context, queue *concurrency.MPMCQueue[string], logger *cli.Logger, produced <-chan struct{}, done *sync.WaitGroup, results *resultTally) {
	defer done.Done()
	for {
		var cmd string
		if !queue.Dequeue(&cmd) {
			select {
			case <-produced:
				if !queue.Dequeue(&cmd) {
					return
				}
			default:
				time.Sleep(time.Microsecond)
				continue
			}
		}
		out, err := ctx.Dispatch(cmd)
		results.record(err == nil)
		if err != nil {
			logger.Info("command %q failed: %v", cmd, err)
		} else {
			logger.Info("command %q -> %s", cmd, out)
		}
	}
}

// runScheduler drives the background strategy table at a fixed cadence
// until stop is closed, the way a host store's own maintenance goroutine
// would call run_all.
func runScheduler(ctx *core.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ctx.Scheduler.RunAll()
		case <-stop:
			return
		}
	}
}
