package hash

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/arrayql/latticedb/internal/dbutil"
	"github.com/arrayql/latticedb/internal/storage/buffer"
)

// Config collects the construction-time parameters of a Table: the
// directory and header depth limits, plus the codecs, comparator, and
// hash function that make the container generic without relying on
// virtual dispatch.
type Config[K comparable, V any] struct {
	HeaderMaxDepth    uint32
	DirectoryMaxDepth uint32
	BucketMaxSize     uint32 // 0 means "derive from codec sizes and dbutil.PageSize"

	KeyCodec Codec[K]
	ValCodec Codec[V]
	Equal    func(K, K) bool
	Hash     func(K) uint32
}

// Table is an on-disk, directory-based extendible hash index
// supporting unique-key insert, point lookup, and delete. All state
// lives in three kinds of pages reached from a single header page.
type Table[K comparable, V any] struct {
	pm           *buffer.PoolManager
	headerPageID dbutil.PageID
	cfg          Config[K, V]
	bucketMax    uint32
	log          logrus.FieldLogger
}

// New allocates a header page and returns a ready Table.
func New[K comparable, V any](pm *buffer.PoolManager, cfg Config[K, V], log logrus.FieldLogger) (*Table[K, V], error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.Equal == nil {
		return nil, fmt.Errorf("hash: Config.Equal is required")
	}
	if cfg.Hash == nil {
		return nil, fmt.Errorf("hash: Config.Hash is required")
	}
	bucketMax := cfg.BucketMaxSize
	if bucketMax == 0 {
		bucketMax = MaxEntriesFor(cfg.KeyCodec, cfg.ValCodec, dbutil.PageSize)
	}

	guard, ok := pm.NewPageGuarded()
	if !ok {
		return nil, dbutil.ErrNoFreeFrame
	}
	guard.MarkDirty()
	WrapHeaderPage(guard.Data()).Init(cfg.HeaderMaxDepth)
	headerID := guard.PageID()
	guard.Drop()

	return &Table[K, V]{
		pm:           pm,
		headerPageID: headerID,
		cfg:          cfg,
		bucketMax:    bucketMax,
		log:          log.WithField("component", "hashtable"),
	}, nil
}

// GetHeaderPageId returns the page identifier of the table's header page.
func (t *Table[K, V]) GetHeaderPageId() dbutil.PageID { return t.headerPageID }

func (t *Table[K, V]) newBucket() (*buffer.BasicPageGuard, *BucketPage[K, V], bool) {
	g, ok := t.pm.NewPageGuarded()
	if !ok {
		return nil, nil, false
	}
	g.MarkDirty()
	bp := WrapBucketPage(g.Data(), t.cfg.KeyCodec, t.cfg.ValCodec)
	bp.Init(t.bucketMax)
	return g, bp, true
}

// Insert adds (key, value) to the table. Returns dbutil.ErrKeyExists if
// key is already present, dbutil.ErrDirectoryFull if a bucket split at
// maximum directory depth would be required, or dbutil.ErrNoFreeFrame
// if the pool has no free frame to give a new directory or bucket page.
func (t *Table[K, V]) Insert(key K, value V) error {
	h := t.cfg.Hash(key)

	headerGuard, ok := t.pm.FetchPageWrite(t.headerPageID)
	if !ok {
		return dbutil.ErrPageNotFound
	}
	defer headerGuard.Drop()
	header := WrapHeaderPage(headerGuard.DataMut())
	dIdx := header.HashToDirectoryIndex(h)

	if header.DirectoryPageID(dIdx) == dbutil.InvalidPageID {
		return t.insertNewDirectory(header, dIdx, key, value)
	}

	dirGuard, ok := t.pm.FetchPageWrite(header.DirectoryPageID(dIdx))
	if !ok {
		return dbutil.ErrPageNotFound
	}
	defer dirGuard.Drop()
	dir := WrapDirectoryPage(dirGuard.DataMut())

	return t.insertIntoDirectory(dir, h, key, value)
}

// insertNewDirectory handles the first insert that lands on a header
// slot with no directory yet: allocate a directory, a bucket, and try
// the insert.
func (t *Table[K, V]) insertNewDirectory(header *HeaderPage, dIdx uint32, key K, value V) error {
	dirGuard, ok := t.pm.NewPageGuarded()
	if !ok {
		return dbutil.ErrNoFreeFrame
	}
	defer dirGuard.Drop()
	dirGuard.MarkDirty()
	dir := WrapDirectoryPage(dirGuard.Data())
	dir.Init(t.cfg.DirectoryMaxDepth)

	bucketGuard, bucket, ok := t.newBucket()
	if !ok {
		return dbutil.ErrNoFreeFrame
	}
	defer bucketGuard.Drop()

	dir.SetBucketPageID(0, bucketGuard.PageID())
	dir.SetLocalDepth(0, 0)

	if err := bucket.Insert(key, value, t.cfg.Equal); err != nil {
		return err
	}

	header.SetDirectoryPageID(dIdx, dirGuard.PageID())
	return nil
}

// insertIntoDirectory is the common path once a directory page for
// the key's header slot already exists: descend to the target bucket,
// insert directly if there's room, otherwise split.
func (t *Table[K, V]) insertIntoDirectory(dir *DirectoryPage, h uint32, key K, value V) error {
	bIdx := dir.HashToBucketIndex(h)
	bucketGuard, ok := t.pm.FetchPageWrite(dir.BucketPageID(bIdx))
	if !ok {
		return dbutil.ErrPageNotFound
	}

	bucket := WrapBucketPage(bucketGuard.DataMut(), t.cfg.KeyCodec, t.cfg.ValCodec)
	if !bucket.IsFull() {
		err := bucket.Insert(key, value, t.cfg.Equal)
		bucketGuard.Drop()
		return err
	}

	return t.splitAndInsert(dir, bIdx, bucketGuard, bucket, key, value)
}

// splitAndInsert handles a full bucket: grow the directory if the
// bucket is already at global depth, allocate a sibling bucket, fan
// the directory mapping out to every slot that now points at the new
// bucket, redistribute entries by the new mask, and insert.
func (t *Table[K, V]) splitAndInsert(dir *DirectoryPage, bIdx uint32, bucketGuard *buffer.WritePageGuard, bucket *BucketPage[K, V], key K, value V) error {
	splitIdx := dir.GetSplitImageIndex(bIdx)
	localDepth := dir.LocalDepth(bIdx)

	if dir.GlobalDepth() == uint32(localDepth) {
		if dir.GlobalDepth() >= dir.MaxDepth() {
			bucketGuard.Drop()
			return dbutil.ErrDirectoryFull
		}
		dir.IncrLocalDepth(bIdx)
		// IncrGlobalDepth mirrors the lower half into the upper half, so
		// splitIdx (computed at the old local depth) is bIdx's mirror slot.
		dir.IncrGlobalDepth()
	} else {
		dir.IncrLocalDepth(bIdx)
	}
	newLocalDepth := dir.LocalDepth(bIdx)

	newBucketGuard, newBucket, ok := t.newBucket()
	if !ok {
		bucketGuard.Drop()
		return dbutil.ErrNoFreeFrame
	}
	defer newBucketGuard.Drop()

	dir.UpdateDirectoryMapping(splitIdx, newBucketGuard.PageID(), newLocalDepth)
	// Every slot still pointing at the old bucket keeps its page id but
	// must also carry the bumped local depth; the call above only touched
	// slots matching the *new* bucket's low bits, so fan bIdx out too.
	dir.UpdateDirectoryMapping(bIdx, dir.BucketPageID(bIdx), newLocalDepth)

	newMask := dir.LocalDepthMask(bIdx)
	splitTarget := splitIdx & newMask

	n := bucket.Size()
	kept := make([]struct {
		k K
		v V
	}, 0, n)
	for i := uint32(0); i < n; i++ {
		k, v := bucket.EntryAt(i)
		if t.cfg.Hash(k)&newMask == splitTarget {
			newBucket.Insert(k, v, t.cfg.Equal)
		} else {
			kept = append(kept, struct {
				k K
				v V
			}{k, v})
		}
	}
	bucket.Init(t.bucketMax)
	for _, e := range kept {
		bucket.Insert(e.k, e.v, t.cfg.Equal)
	}
	bucketGuard.Drop()
	newBucketGuard.Drop()

	// Re-route through insertIntoDirectory rather than inserting
	// directly: a single split can still leave the target bucket full
	// (e.g. every redistributed key collides on the new low bit), and
	// insertIntoDirectory will split again as many times as needed,
	// bounded by the directory's max depth.
	return t.insertIntoDirectory(dir, t.cfg.Hash(key), key, value)
}

// GetValue looks up key and returns its value, or a zero value and
// dbutil.ErrKeyNotFound if absent. When the header slot for this key's
// hash has no directory at all, the error also matches
// dbutil.ErrHeaderUninitiated.
func (t *Table[K, V]) GetValue(key K) (V, error) {
	var zero V
	h := t.cfg.Hash(key)

	headerGuard, ok := t.pm.FetchPageRead(t.headerPageID)
	if !ok {
		return zero, dbutil.ErrPageNotFound
	}
	header := WrapHeaderPage(headerGuard.Data())
	dIdx := header.HashToDirectoryIndex(h)
	dirID := header.DirectoryPageID(dIdx)
	headerGuard.Drop()
	if dirID == dbutil.InvalidPageID {
		return zero, fmt.Errorf("%w: %w", dbutil.ErrKeyNotFound, dbutil.ErrHeaderUninitiated)
	}

	// A read lock suffices here: nothing below mutates the directory.
	dirGuard, ok := t.pm.FetchPageRead(dirID)
	if !ok {
		return zero, dbutil.ErrPageNotFound
	}
	dir := WrapDirectoryPage(dirGuard.Data())
	bIdx := dir.HashToBucketIndex(h)
	bucketID := dir.BucketPageID(bIdx)
	dirGuard.Drop()
	if bucketID == dbutil.InvalidPageID {
		return zero, dbutil.ErrKeyNotFound
	}

	bucketGuard, ok := t.pm.FetchPageRead(bucketID)
	if !ok {
		return zero, dbutil.ErrPageNotFound
	}
	defer bucketGuard.Drop()
	bucket := WrapBucketPage(bucketGuard.Data(), t.cfg.KeyCodec, t.cfg.ValCodec)
	v, found := bucket.Lookup(key, t.cfg.Equal)
	if !found {
		return zero, dbutil.ErrKeyNotFound
	}
	return v, nil
}

// Remove deletes key if present, returning dbutil.ErrKeyNotFound (or
// dbutil.ErrHeaderUninitiated) if it is not. The table never coalesces
// buckets or shrinks the directory afterward — CanShrink/DecrGlobalDepth
// exist on DirectoryPage but are intentionally not driven from here.
func (t *Table[K, V]) Remove(key K) error {
	h := t.cfg.Hash(key)

	headerGuard, ok := t.pm.FetchPageRead(t.headerPageID)
	if !ok {
		return dbutil.ErrPageNotFound
	}
	header := WrapHeaderPage(headerGuard.Data())
	dIdx := header.HashToDirectoryIndex(h)
	dirID := header.DirectoryPageID(dIdx)
	headerGuard.Drop()
	if dirID == dbutil.InvalidPageID {
		return dbutil.ErrHeaderUninitiated
	}

	dirGuard, ok := t.pm.FetchPageRead(dirID)
	if !ok {
		return dbutil.ErrPageNotFound
	}
	dir := WrapDirectoryPage(dirGuard.Data())
	bIdx := dir.HashToBucketIndex(h)
	bucketID := dir.BucketPageID(bIdx)
	dirGuard.Drop()
	if bucketID == dbutil.InvalidPageID {
		return dbutil.ErrKeyNotFound
	}

	bucketGuard, ok := t.pm.FetchPageWrite(bucketID)
	if !ok {
		return dbutil.ErrPageNotFound
	}
	defer bucketGuard.Drop()
	bucket := WrapBucketPage(bucketGuard.DataMut(), t.cfg.KeyCodec, t.cfg.ValCodec)
	if !bucket.Remove(key, t.cfg.Equal) {
		return dbutil.ErrKeyNotFound
	}
	return nil
}

// VerifyIntegrity walks every directory reachable from the header and
// checks DirectoryPage.VerifyIntegrity on each.
func (t *Table[K, V]) VerifyIntegrity() error {
	headerGuard, ok := t.pm.FetchPageRead(t.headerPageID)
	if !ok {
		return fmt.Errorf("hash: cannot fetch header page %d", t.headerPageID)
	}
	header := WrapHeaderPage(headerGuard.Data())
	maxSize := header.MaxSize()
	dirIDs := make([]dbutil.PageID, 0, maxSize)
	for i := uint32(0); i < maxSize; i++ {
		if id := header.DirectoryPageID(i); id != dbutil.InvalidPageID {
			dirIDs = append(dirIDs, id)
		}
	}
	headerGuard.Drop()

	for _, id := range dirIDs {
		g, ok := t.pm.FetchPageRead(id)
		if !ok {
			return fmt.Errorf("hash: cannot fetch directory page %d", id)
		}
		err := WrapDirectoryPage(g.Data()).VerifyIntegrity()
		g.Drop()
		if err != nil {
			return err
		}
	}
	return nil
}

// PrintHT renders a human-readable dump of global depth, each
// directory slot's local depth, and each bucket's occupied key count —
// useful for debugging and as a golden-output test fixture.
func (t *Table[K, V]) PrintHT() string {
	var sb strings.Builder

	headerGuard, ok := t.pm.FetchPageRead(t.headerPageID)
	if !ok {
		return "<header unavailable>"
	}
	header := WrapHeaderPage(headerGuard.Data())
	fmt.Fprintf(&sb, "header(maxDepth=%d)\n", header.MaxDepth())
	maxSize := header.MaxSize()
	type dirRef struct {
		idx uint32
		id  dbutil.PageID
	}
	var dirs []dirRef
	for i := uint32(0); i < maxSize; i++ {
		if id := header.DirectoryPageID(i); id != dbutil.InvalidPageID {
			dirs = append(dirs, dirRef{i, id})
		}
	}
	headerGuard.Drop()

	for _, d := range dirs {
		g, ok := t.pm.FetchPageRead(d.id)
		if !ok {
			continue
		}
		dir := WrapDirectoryPage(g.Data())
		fmt.Fprintf(&sb, "  directory[%d] page=%d globalDepth=%d\n", d.idx, d.id, dir.GlobalDepth())
		seen := map[dbutil.PageID]bool{}
		for i := uint32(0); i < dir.Size(); i++ {
			bucketID := dir.BucketPageID(i)
			if seen[bucketID] {
				continue
			}
			seen[bucketID] = true
			bg, ok := t.pm.FetchPageRead(bucketID)
			if !ok {
				continue
			}
			bucket := WrapBucketPage(bg.Data(), t.cfg.KeyCodec, t.cfg.ValCodec)
			fmt.Fprintf(&sb, "    bucket page=%d localDepth=%d size=%d/%d\n",
				bucketID, dir.LocalDepth(i), bucket.Size(), bucket.MaxSize())
			bg.Drop()
		}
		g.Drop()
	}
	return sb.String()
}
