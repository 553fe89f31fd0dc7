package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/panyam/gocoord"
	"github.com/panyam/gocoord/internal/config"
)

// printer serialises writes from concurrent workers onto one writer.
type printer struct {
	w   *gocoord.Cell[io.Writer]
	log *slog.Logger
}

func newPrinter(w io.Writer, logger *slog.Logger) *printer {
	return &printer{w: gocoord.NewCell(w), log: logger}
}

// Printf writes one line of walkthrough output. Output is best effort: a
// failed write or a poisoned writer is logged and the stage carries on.
func (p *printer) Printf(format string, args ...any) {
	err := p.w.With(func(w *io.Writer) error {
		_, err := fmt.Fprintf(*w, format, args...)
		return err
	})
	if err != nil {
		p.log.Debug("output dropped", "error", err)
	}
}

func (p *printer) Close() {
	p.w.Release()
}

type demo struct {
	cfg    *config.Config
	out    *printer
	log    *slog.Logger
	inject bool
}

// maybeFail panics when this stage was selected with --fail-stage. It is
// only ever called from inside a worker.
func (d *demo) maybeFail(where string) {
	if d.inject {
		panic("injected failure in " + where)
	}
}

type stage struct {
	name string
	run  func(d *demo) error
}

var stages = []stage{
	{"basic-threads", basicThreads},
	{"message-passing", messagePassing},
	{"shared-state", sharedState},
	{"move-closures", moveClosures},
	{"parallel-computation", parallelComputation},
}

func stageNames() []string {
	names := make([]string, len(stages))
	for i, st := range stages {
		names[i] = st.name
	}
	return names
}

func findStage(name string) *stage {
	for i := range stages {
		if stages[i].name == name {
			return &stages[i]
		}
	}
	return nil
}

// run executes every stage in order and reports each failure. One failed
// stage does not stop the later ones.
func run(cfg *config.Config, stdout io.Writer, logger *slog.Logger) int {
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return exitUsage
	}
	logger.Info("starting", "config", cfg.String())

	out := newPrinter(stdout, logger)
	defer out.Close()

	failed := 0
	for _, st := range stages {
		d := &demo{
			cfg:    cfg,
			out:    out,
			log:    logger.With("stage", st.name),
			inject: cfg.FailStage == st.name,
		}
		start := time.Now()
		if err := st.run(d); err != nil {
			failed++
			d.log.Error("stage failed", "error", err)
			for _, wf := range gocoord.AllFailures(err) {
				if wf.Panicked() {
					d.log.Debug("worker panic", "task", wf.Task.Name, "stack", wf.Stack)
				}
			}
			continue
		}
		d.log.Info("stage completed", "elapsed", time.Since(start))
	}

	if failed > 0 {
		logger.Error("finished with failures", "failed", failed, "stages", len(stages))
		return exitFailed
	}
	return exitOK
}

func basicThreads(d *demo) error {
	h := gocoord.Go(func() {
		for i := 1; i <= 5; i++ {
			d.out.Printf("Thread: counting %d\n", i)
			if i == 3 {
				d.maybeFail("counting thread")
			}
			time.Sleep(d.cfg.MessageDelay)
		}
	}, gocoord.WithName("counter"))

	for i := 1; i <= 3; i++ {
		d.out.Printf("Main: counting %d\n", i)
		time.Sleep(d.cfg.MessageDelay * 3 / 5)
	}

	if _, err := h.Join(); err != nil {
		return err
	}
	d.out.Printf("Basic threads completed!\n")
	return nil
}

func messagePassing(d *demo) error {
	tx, rx := gocoord.NewChannel[gocoord.Message[string]]()

	// Each producer is handed its own sender before it starts.
	producers := make([]*gocoord.TaskHandle[int], d.cfg.Producers)
	for p := range producers {
		words := []string{"Hello", "from", "producer", strconv.Itoa(p + 1)}
		seq := 0
		producers[p] = gocoord.NewReader(tx.Clone(), func() (gocoord.Message[string], error) {
			if seq > 0 {
				time.Sleep(d.cfg.MessageDelay)
			}
			if p == 0 && seq == 2 {
				d.maybeFail("producer 1")
			}
			if seq == len(words) {
				return gocoord.Message[string]{}, io.EOF
			}
			msg := gocoord.Message[string]{Value: words[seq], Source: p, Seq: seq}
			seq++
			return msg, nil
		}, gocoord.WithName(fmt.Sprintf("producer-%d", p+1)))
	}
	tx.Close()

	received := 0
	for msg := range rx.Iter() {
		d.out.Printf("Received: %s\n", msg.Value)
		received++
	}
	d.log.Debug("receiver finished", "messages", received)

	if _, err := gocoord.JoinAll(producers); err != nil {
		return err
	}
	d.out.Printf("Message passing completed!\n")
	return nil
}

func sharedState(d *demo) error {
	counter := gocoord.NewCell(0)
	defer counter.Release()

	refs := make([]*gocoord.Cell[int], d.cfg.Increments)
	for i := range refs {
		refs[i] = counter.CloneHandle()
	}

	handles, err := gocoord.SpawnN(len(refs), func(i int) (struct{}, error) {
		c := refs[i]
		defer c.Release()
		return struct{}{}, c.With(func(n *int) error {
			if i == 0 {
				d.maybeFail("counter increment")
			}
			*n += 1
			return nil
		})
	}, gocoord.WithName("incrementer"))
	if err != nil {
		return err
	}
	if _, err := gocoord.JoinAll(handles); err != nil {
		return err
	}

	n, err := counter.Load()
	if err != nil {
		return err
	}
	if n != d.cfg.Increments {
		return fmt.Errorf("counter is %d after %d increments", n, d.cfg.Increments)
	}
	d.out.Printf("Final counter value: %d\n", n)
	d.out.Printf("Shared state completed!\n")
	return nil
}

func moveClosures(d *demo) error {
	data := []int{1, 2, 3, 4, 5}
	owned := gocoord.Move(&data)

	h := gocoord.Spawn(func() (int, error) {
		d.out.Printf("Thread has data: %v\n", owned)
		d.maybeFail("summing thread")
		sum := 0
		for _, v := range owned {
			sum += v
		}
		return sum, nil
	}, gocoord.WithName("summer"))

	sum, err := h.Join()
	if err != nil {
		return err
	}
	d.out.Printf("Sum calculated in thread: %d\n", sum)
	d.out.Printf("Move closures completed!\n")
	return nil
}

func parallelComputation(d *demo) error {
	numbers := make([]uint64, d.cfg.Items)
	for i := range numbers {
		numbers[i] = uint64(i + 1)
	}

	r, err := gocoord.ParallelReduce(numbers, d.cfg.Workers, func(chunk []uint64) (uint64, error) {
		if chunk[0] == 1 {
			d.maybeFail("first chunk")
		}
		var sum uint64
		for _, x := range chunk {
			sum += x * x
		}
		return sum, nil
	}, gocoord.Sum[uint64])
	if err != nil {
		return err
	}

	for _, p := range r.Partials {
		d.out.Printf("Thread processed %d numbers, sum: %d\n", p.Count, p.Value)
	}
	if r.Count != len(numbers) {
		return fmt.Errorf("processed %d of %d numbers", r.Count, len(numbers))
	}
	d.out.Printf("Total: processed %d numbers, final sum: %d\n", r.Count, r.Value)
	d.out.Printf("Parallel computation completed!\n")
	return nil
}
