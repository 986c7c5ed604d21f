package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "dailypush/pkg/logx"
)

// Job is one named trigger.
type Job struct {
	Name     string
	Schedule string
	// Timeout bounds one run; zero means no limit.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

type EntryInfo struct {
	Name     string
	Schedule string
	Next     time.Time
	Prev     time.Time
}

type def struct {
	job     Job
	spec    ParsedSpec
	entryID cron.EntryID
}

// Scheduler runs jobs on their triggers until stopped. It is safe for
// concurrent use.
type Scheduler struct {
	mu     sync.Mutex
	log    logx.Logger
	loc    *time.Location
	parser cron.Parser
	c      *cron.Cron
	defs   []*def

	// rmu guards runCtx and cancel. run must not take mu: SetLocation holds
	// it across cron.Stop, which waits for running jobs.
	rmu    sync.Mutex
	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(loc *time.Location, log logx.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Scheduler{
		log: log.With(logx.Comp("scheduler")),
		loc: loc,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Add registers a job. Jobs added after Start are scheduled immediately.
func (s *Scheduler) Add(j Job) error {
	if strings.TrimSpace(j.Name) == "" || j.Run == nil {
		return errors.New("job needs a name and a run func")
	}
	spec, err := ParseSchedule(j.Schedule)
	if err != nil {
		return fmt.Errorf("job %s: %w", j.Name, err)
	}
	if spec.Kind == SpecCron {
		if _, err := s.parser.Parse(spec.Cron); err != nil {
			return fmt.Errorf("job %s: cron %q: %w", j.Name, spec.Cron, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.defs {
		if d.job.Name == j.Name {
			return fmt.Errorf("job %s already scheduled", j.Name)
		}
	}
	d := &def{job: j, spec: spec}
	s.defs = append(s.defs, d)
	if s.c != nil {
		return s.addLocked(d)
	}
	return nil
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.rmu.Lock()
	s.runCtx, s.cancel = runCtx, cancel
	s.rmu.Unlock()
	s.startLocked()
}

func (s *Scheduler) startLocked() {
	s.c = cron.New(
		cron.WithParser(s.parser),
		cron.WithLocation(s.loc),
		cron.WithChain(cron.Recover(cronLogger{s.log}), cron.SkipIfStillRunning(cronLogger{s.log})),
	)
	for _, d := range s.defs {
		if err := s.addLocked(d); err != nil {
			s.log.Warn("schedule rejected", logx.Job(d.job.Name), logx.Err(err))
		}
	}
	s.c.Start()
	s.log.Info("scheduler started", logx.String("tz", s.loc.String()), logx.Int("jobs", len(s.defs)))
}

func (s *Scheduler) addLocked(d *def) error {
	run := cron.FuncJob(func() { s.run(d.job) })
	if d.spec.Kind == SpecInterval {
		d.entryID = s.c.Schedule(intervalWithSpread(d.spec.Every, time.Now().In(s.loc), d.job.Name), run)
		return nil
	}
	id, err := s.c.AddJob(d.spec.Cron, run)
	if err != nil {
		return err
	}
	d.entryID = id
	return nil
}

func (s *Scheduler) run(j Job) {
	s.rmu.Lock()
	parent := s.runCtx
	s.rmu.Unlock()
	if parent == nil || parent.Err() != nil {
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()

	ctx := parent
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, j.Timeout)
		defer cancel()
	}

	start := time.Now()
	s.log.Info("job started", logx.Job(j.Name))
	if err := j.Run(ctx); err != nil {
		s.log.Error("job failed", logx.Job(j.Name), logx.Duration("took", time.Since(start)), logx.Err(err))
		return
	}
	s.log.Info("job finished", logx.Job(j.Name), logx.Duration("took", time.Since(start)))
}

// SetLocation moves every trigger to loc, restarting cron if it is running.
func (s *Scheduler) SetLocation(loc *time.Location) {
	if loc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loc.String() == loc.String() {
		return
	}
	s.loc = loc
	if s.c == nil {
		return
	}
	<-s.c.Stop().Done()
	s.startLocked()
}

// Entries lists jobs in registration order with their next/previous runs.
func (s *Scheduler) Entries() []EntryInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EntryInfo, 0, len(s.defs))
	for _, d := range s.defs {
		info := EntryInfo{Name: d.job.Name, Schedule: d.job.Schedule}
		if s.c != nil && d.entryID != 0 {
			e := s.c.Entry(d.entryID)
			info.Next, info.Prev = e.Next, e.Prev
		}
		out = append(out, info)
	}
	return out
}

// Stop stops triggering, cancels running jobs and waits for them until ctx
// ends.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	s.rmu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.rmu.Unlock()
	if c == nil {
		return
	}

	stopped := c.Stop().Done()
	if cancel != nil {
		cancel()
	}
	done := make(chan struct{})
	go func() {
		<-stopped
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out", logx.Err(ctx.Err()))
	}
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug("cron: "+msg, kvFields(kv)...)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error("cron: "+msg, append(kvFields(kv), logx.Err(err))...)
}

func kvFields(kv []any) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
