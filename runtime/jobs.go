package runtime

import (
	"context"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
)

// Job is a deferred unit of work, such as a promise reaction.
type Job func(a *Agent) error

// JobQueue is the FIFO queue of pending jobs.
type JobQueue struct {
	q *linkedlistqueue.Queue
}

// NewJobQueue returns an empty queue.
func NewJobQueue() *JobQueue {
	return &JobQueue{q: linkedlistqueue.New()}
}

// Enqueue appends a job.
func (q *JobQueue) Enqueue(job Job) { q.q.Enqueue(job) }

// Dequeue removes the oldest job.
func (q *JobQueue) Dequeue() (Job, bool) {
	v, ok := q.q.Dequeue()
	if !ok {
		return nil, false
	}
	return v.(Job), true
}

// Len returns the number of pending jobs.
func (q *JobQueue) Len() int { return q.q.Size() }

// Clear drops every pending job.
func (q *JobQueue) Clear() { q.q.Clear() }

// EnqueueJob schedules job to run on the next drain.
func (a *Agent) EnqueueJob(job Job) {
	a.jobs.Enqueue(job)
}

// PendingJobs returns the number of queued jobs.
func (a *Agent) PendingJobs() int { return a.jobs.Len() }

// PendingFutures returns the number of spawned native operations whose
// results have not been collected.
func (a *Agent) PendingFutures() int { return a.inflight }

// RunJobs drains the job queue, including jobs enqueued by the jobs it runs,
// and settles native futures that have already completed. Exceptions thrown
// by a job are logged and do not stop the drain; engine errors do.
func (a *Agent) RunJobs() error {
	if a.closed {
		return nil
	}
	a.reapAbandoned()
	ran := 0
	for {
		a.collectFutures()
		job, ok := a.jobs.Dequeue()
		if !ok {
			break
		}
		ran++
		if err := job(a); err != nil {
			if _, ok := AsException(err); !ok {
				return err
			}
			a.logger.Warn("uncaught exception in job", "error", err.Error())
		}
	}
	if ran > 0 {
		a.logger.Debug("jobs drained", "count", ran)
	}
	a.reportRejections()
	return nil
}

// RunJobsContext drains the queue and keeps waiting for spawned native
// futures until none remain or ctx is done. Giving up on ctx leaves the
// queue intact; late results are collected by a later drain.
func (a *Agent) RunJobsContext(ctx context.Context) error {
	for {
		if err := a.RunJobs(); err != nil {
			return err
		}
		if a.inflight == 0 || a.closed {
			return nil
		}
		select {
		case r := <-a.futures:
			a.settleFuture(r)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// futureResult is the outcome of a spawned native operation, posted back
// to the agent goroutine.
type futureResult struct {
	value      any
	err        error
	convert    func(*Agent, any) (*Value, error)
	capability *PromiseCapability
}

// Spawn runs fn on its own goroutine and returns a promise for its result.
// convert turns the Go result into a script value on the agent goroutine;
// nil means the result is already a *Value. The promise settles during a
// later RunJobs or RunJobsContext.
func (a *Agent) Spawn(fn func(ctx context.Context) (any, error), convert func(*Agent, any) (*Value, error)) *Object {
	capability := a.NewIntrinsicPromiseCapability()
	a.inflight++
	ctx, futures := a.root, a.futures
	go func() {
		v, err := fn(ctx)
		select {
		case futures <- futureResult{value: v, err: err, convert: convert, capability: capability}:
		case <-ctx.Done():
		}
	}()
	return capability.Promise
}

func (a *Agent) collectFutures() {
	for {
		select {
		case r := <-a.futures:
			a.settleFuture(r)
		default:
			return
		}
	}
}

func (a *Agent) settleFuture(r futureResult) {
	a.inflight--
	a.EnqueueJob(func(a *Agent) error {
		if r.err != nil {
			reason := exceptionValue(a.toLanguageError(r.err))
			_, err := a.Call(r.capability.Reject, Undefined, []*Value{reason})
			return err
		}
		var (
			v   *Value
			err error
		)
		if r.convert != nil {
			v, err = r.convert(a, r.value)
		} else if rv, ok := r.value.(*Value); ok {
			v = rv
		}
		if err != nil {
			if _, ok := AsException(err); !ok {
				err = a.toLanguageError(err)
			}
			_, cerr := a.Call(r.capability.Reject, Undefined, []*Value{exceptionValue(err)})
			return cerr
		}
		_, err = a.Call(r.capability.Resolve, Undefined, []*Value{orUndefined(v)})
		return err
	})
}
