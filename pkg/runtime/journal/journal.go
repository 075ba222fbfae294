// Package journal is the record sink of a running script. Records are
// posted without waiting for a reply and written by the journal's own
// goroutine, so task output from concurrent evaluations never interleaves.
// Posting only blocks once Backlog records are waiting to be written.
package journal

import (
	"context"
	"io"
	"os"

	"sibs/pkg/runtime/actor"

	"github.com/charmbracelet/log"
)

type record struct {
	level log.Level
	owner string
	job   string
	msg   string
	kv    []any
	flush chan<- struct{}
}

// Backlog is the number of records queued before posting blocks.
const Backlog = 256

type Journal struct {
	mb *actor.Mailbox[record]
}

// New starts a journal writing through logger.
func New(logger *log.Logger) *Journal {
	return &Journal{mb: actor.NewBuffered("journal", Backlog, func(r record) {
		if r.flush != nil {
			r.flush <- struct{}{}
			return
		}

		kv := make([]any, 0, len(r.kv)+4)
		if r.owner != "" {
			kv = append(kv, "task", r.owner)
		}
		if r.job != "" {
			kv = append(kv, "job", r.job)
		}
		kv = append(kv, r.kv...)
		logger.Log(r.level, r.msg, kv...)
	})}
}

// NewLogger builds the journal logger used when none is supplied.
func NewLogger(w io.Writer, verbose bool) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: "sibs",
		Level:  level,
	})
}

func (j *Journal) post(r record) {
	j.mb.TrySend(r)
}

func (j *Journal) Info(owner, msg string, kv ...any) {
	j.post(record{level: log.InfoLevel, owner: owner, msg: msg, kv: kv})
}

func (j *Journal) Debug(owner, msg string, kv ...any) {
	j.post(record{level: log.DebugLevel, owner: owner, msg: msg, kv: kv})
}

func (j *Journal) Warn(owner, msg string, kv ...any) {
	j.post(record{level: log.WarnLevel, owner: owner, msg: msg, kv: kv})
}

func (j *Journal) Err(owner, msg string, kv ...any) {
	j.post(record{level: log.ErrorLevel, owner: owner, msg: msg, kv: kv})
}

// Progress reports a step of a long running job.
func (j *Journal) Progress(owner, job, msg string) {
	j.post(record{level: log.InfoLevel, owner: owner, job: job, msg: msg})
}

// Flush waits until every record posted before it has been written.
func (j *Journal) Flush(ctx context.Context) error {
	_, err := actor.Ask(ctx, j.mb, func(reply chan<- struct{}) record {
		return record{flush: reply}
	})
	return err
}

// Shutdown stops the journal. Later records are dropped.
func (j *Journal) Shutdown() {
	j.mb.Close()
}
