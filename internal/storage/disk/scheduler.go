package disk

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/arrayql/latticedb/internal/dbutil"
)

// Request carries a single read or write of one whole page, plus a
// one-shot completion channel the caller awaits. IsWrite selects
// direction; Data is exactly dbutil.PageSize bytes — the bytes to
// write for a write, the buffer to fill for a read.
type Request struct {
	IsWrite bool
	Data    []byte
	PageID  dbutil.PageID
	Done    chan<- bool
}

// Scheduler accepts page read/write requests and executes them
// serially, in FIFO order, on a single background worker. There is no
// I/O parallelism and no reordering: two requests against the same
// page run in the order they were scheduled.
type Scheduler struct {
	manager *Manager
	queue   chan *Request
	wg      sync.WaitGroup
	log     logrus.FieldLogger
}

// NewScheduler starts the background worker and returns a ready
// Scheduler. queueCapacity bounds the blocking queue; Schedule blocks
// once it is full.
func NewScheduler(manager *Manager, queueCapacity int, log logrus.FieldLogger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if queueCapacity <= 0 {
		queueCapacity = 1
	}
	s := &Scheduler{
		manager: manager,
		queue:   make(chan *Request, queueCapacity),
		log:     log.WithField("component", "disk-scheduler"),
	}
	s.wg.Add(1)
	go s.workerLoop()
	return s
}

// Schedule pushes req onto the queue. It blocks only if the queue is
// at capacity.
func (s *Scheduler) Schedule(req *Request) {
	s.queue <- req
}

// CreateCompletion returns a one-shot signal a caller can block on for
// the boolean result of a scheduled request.
func (s *Scheduler) CreateCompletion() chan bool {
	return make(chan bool, 1)
}

// Shutdown pushes the sentinel nil request and joins the worker. It is
// safe to call exactly once.
func (s *Scheduler) Shutdown() {
	s.queue <- nil
	s.wg.Wait()
}

func (s *Scheduler) workerLoop() {
	defer s.wg.Done()
	for req := range s.queue {
		if req == nil {
			return
		}
		var err error
		if req.IsWrite {
			err = s.manager.WritePage(req.PageID, req.Data)
		} else {
			err = s.manager.ReadPage(req.PageID, req.Data)
		}
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"page_id": req.PageID,
				"write":   req.IsWrite,
			}).Error("disk request failed")
		}
		// The signal fires regardless of the I/O error so the caller is
		// never left blocked; its value reports whether the request succeeded.
		if req.Done != nil {
			req.Done <- err == nil
		}
	}
}

// ReadSync schedules a synchronous read and blocks until it completes,
// returning whether it succeeded. Convenience wrapper used throughout
// the buffer pool, which never needs to pipeline more than one I/O per
// frame acquisition.
func (s *Scheduler) ReadSync(id dbutil.PageID, dst []byte) bool {
	done := s.CreateCompletion()
	s.Schedule(&Request{IsWrite: false, Data: dst, PageID: id, Done: done})
	return <-done
}

// WriteSync schedules a synchronous write and blocks until it completes.
func (s *Scheduler) WriteSync(id dbutil.PageID, src []byte) bool {
	done := s.CreateCompletion()
	s.Schedule(&Request{IsWrite: true, Data: src, PageID: id, Done: done})
	return <-done
}
