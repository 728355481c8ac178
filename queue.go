package deferred

import "sync"

// queueChunkSize is the number of thunks per node in the thunkQueue linked
// list. 128 thunks * 8 bytes/thunk + overhead = ~1KB per chunk.
const queueChunkSize = 128

// thunkQueue is a chunked linked-list FIFO for scheduler thunks.
//
// Thread Safety: this struct is NOT thread-safe. The caller must provide
// external synchronization (the Scheduler's mutex).
//
// Fixed-size arrays provide cache locality and amortize allocations, and
// sync.Pool chunk recycling prevents GC thrashing under high throughput.
type thunkQueue struct {
	head   *queueChunk
	tail   *queueChunk
	length int
}

var queueChunkPool = sync.Pool{
	New: func() any {
		return &queueChunk{}
	},
}

// queueChunk is a fixed-size node in the chunked linked-list. It uses
// readPos/writePos cursors for O(1) push/pop without shifting.
type queueChunk struct {
	thunks   [queueChunkSize]func()
	next     *queueChunk
	readPos  int // first unread slot
	writePos int // first unused slot
}

func acquireQueueChunk() *queueChunk {
	c := queueChunkPool.Get().(*queueChunk)
	c.readPos = 0
	c.writePos = 0
	c.next = nil
	return c
}

// releaseQueueChunk clears remaining thunk slots before pooling so retained
// closures do not leak.
func releaseQueueChunk(c *queueChunk) {
	for i := c.readPos; i < c.writePos; i++ {
		c.thunks[i] = nil
	}
	c.readPos = 0
	c.writePos = 0
	c.next = nil
	queueChunkPool.Put(c)
}

// Push appends a thunk to the queue.
//
// CALLER MUST HOLD EXTERNAL MUTEX.
func (q *thunkQueue) Push(fn func()) {
	if q.tail == nil {
		q.tail = acquireQueueChunk()
		q.head = q.tail
	}

	if q.tail.writePos == len(q.tail.thunks) {
		next := acquireQueueChunk()
		q.tail.next = next
		q.tail = next
	}

	q.tail.thunks[q.tail.writePos] = fn
	q.tail.writePos++
	q.length++
}

// Pop removes and returns the oldest thunk. Returns false if the queue is
// empty.
//
// CALLER MUST HOLD EXTERNAL MUTEX.
func (q *thunkQueue) Pop() (func(), bool) {
	if q.head == nil {
		return nil, false
	}

	if q.head.readPos >= q.head.writePos {
		if q.head == q.tail {
			q.head.readPos = 0
			q.head.writePos = 0
			return nil, false
		}
		exhausted := q.head
		q.head = q.head.next
		releaseQueueChunk(exhausted)
	}

	if q.head.readPos >= q.head.writePos {
		return nil, false
	}

	fn := q.head.thunks[q.head.readPos]
	// Zero out the popped slot for GC safety.
	q.head.thunks[q.head.readPos] = nil
	q.head.readPos++
	q.length--

	if q.head.readPos >= q.head.writePos {
		if q.head == q.tail {
			q.head.readPos = 0
			q.head.writePos = 0
			return fn, true
		}
		exhausted := q.head
		q.head = q.head.next
		releaseQueueChunk(exhausted)
	}

	return fn, true
}

// Len returns the queue length.
//
// CALLER MUST HOLD EXTERNAL MUTEX.
func (q *thunkQueue) Len() int {
	return q.length
}

// Reset discards all queued thunks and returns every chunk to the pool.
//
// CALLER MUST HOLD EXTERNAL MUTEX.
func (q *thunkQueue) Reset() {
	for c := q.head; c != nil; {
		next := c.next
		releaseQueueChunk(c)
		c = next
	}
	q.head = nil
	q.tail = nil
	q.length = 0
}
