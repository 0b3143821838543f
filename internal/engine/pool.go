package engine

import (
	"context"
	"sync"
)

type taskResult struct {
	Result
	err error
}

// pool runs tasks on a fixed number of goroutines. Results are delivered on a
// channel sized to the in-flight bound, so workers never block on delivery
// while the Orchestrator honours that bound.
type pool struct {
	tasks   chan Task
	results chan taskResult
	wg      sync.WaitGroup
	done    chan struct{}
}

func newPool(ctx context.Context, workers, maxInFlight int, proc *Processor) *pool {
	p := &pool{
		tasks:   make(chan Task, maxInFlight),
		results: make(chan taskResult, maxInFlight),
		done:    make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				res, err := proc.Execute(ctx, task)
				p.results <- taskResult{Result: res, err: err}
			}
		}()
	}
	go func() {
		p.wg.Wait()
		close(p.done)
	}()
	return p
}

func (p *pool) submit(task Task) {
	p.tasks <- task
}

// close stops accepting tasks. Workers exit after draining queued tasks.
func (p *pool) close() {
	close(p.tasks)
}
